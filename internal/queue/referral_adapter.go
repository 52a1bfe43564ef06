package queue

import (
	"github.com/google/uuid"
)

// ReferralVerifiedPayload is the payload for referral_verified jobs
type ReferralVerifiedPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

// ReferralNotifier enqueues referral credit work when a user is verified.
// Duplicate notifications are harmless; the ledger credit key dedupes.
type ReferralNotifier struct {
	queue Enqueuer
}

// NewReferralNotifier creates a queue-backed referral notifier
func NewReferralNotifier(q Enqueuer) *ReferralNotifier {
	return &ReferralNotifier{queue: q}
}

// NotifyVerified enqueues a referral_verified job for the user
func (n *ReferralNotifier) NotifyVerified(userID uuid.UUID) error {
	job, err := NewJob(JobTypeReferralVerified, ReferralVerifiedPayload{UserID: userID})
	if err != nil {
		return err
	}
	return n.queue.Enqueue(job)
}
