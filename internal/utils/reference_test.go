package utils_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/taskrupee/backend/internal/utils"
)

func TestNewReference(t *testing.T) {
	ref := utils.NewReference("KYC")
	assert.True(t, strings.HasPrefix(ref, "KYC-"))
	assert.Len(t, ref, 16)

	assert.NotEqual(t, ref, utils.NewReference("KYC"))
}

func TestTransferReferenceIsDeterministic(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, utils.TransferReference(id), utils.TransferReference(id))
	assert.True(t, strings.HasPrefix(utils.TransferReference(id), "WD-"))

	assert.NotEqual(t, utils.TransferReference(id), utils.TransferReference(uuid.New()))
}
