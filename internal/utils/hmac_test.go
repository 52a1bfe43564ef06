package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskrupee/backend/internal/utils"
)

func TestSignAndVerifyHMAC(t *testing.T) {
	payload := `{"order_id":"ORD-1","status":"paid"}`
	secret := "webhook-secret"

	signature := utils.SignHMAC(payload, secret)
	assert.True(t, utils.VerifyHMAC(payload, signature, secret))

	assert.False(t, utils.VerifyHMAC(payload, signature, "wrong-secret"))
	assert.False(t, utils.VerifyHMAC(payload+"x", signature, secret))
	assert.False(t, utils.VerifyHMAC(payload, "not-a-signature", secret))
	assert.False(t, utils.VerifyHMAC(payload, "", secret))
}
