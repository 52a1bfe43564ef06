package utils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewReference generates a human-readable unique reference with a prefix,
// e.g. KYC-1a2b3c4d5e6f. Used for payment order ids.
func NewReference(prefix string) string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("%s-%s", prefix, raw[:12])
}

// TransferReference derives the payout idempotency key for a withdrawal
// request. Deterministic so that retried approvals reuse the same transfer id.
func TransferReference(requestID uuid.UUID) string {
	return "WD-" + strings.ReplaceAll(requestID.String(), "-", "")[:16]
}
