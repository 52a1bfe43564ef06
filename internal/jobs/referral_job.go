package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/taskrupee/backend/internal/queue"
	"github.com/taskrupee/backend/internal/services/referral"
)

// ReferralHandlers processes referral credit jobs
type ReferralHandlers struct {
	referrals *referral.Service
}

// NewReferralHandlers creates handlers for referral jobs
func NewReferralHandlers(referrals *referral.Service) *ReferralHandlers {
	return &ReferralHandlers{referrals: referrals}
}

// ReferralVerified credits the referrer after the referred user is verified.
// Safe to replay: the credit is deduped in the ledger.
func (h *ReferralHandlers) ReferralVerified(ctx context.Context, job *queue.Job) error {
	var payload queue.ReferralVerifiedPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshaling referral payload: %w", err)
	}
	return h.referrals.OnReferredVerified(payload.UserID)
}
