package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 30*time.Second, nextBackoff(1))
	assert.Equal(t, 60*time.Second, nextBackoff(2))
	assert.Equal(t, 120*time.Second, nextBackoff(3))
	assert.Equal(t, time.Hour, nextBackoff(20))
}
