package kyc

import (
	"github.com/taskrupee/backend/internal/models"
)

// VerdictPolicy decides what the fee payment confirmation means for the
// user's verification status. The platform historically auto-verified on
// payment; manual review routes the user to an admin queue instead.
type VerdictPolicy interface {
	StatusOnFeePaid() models.KYCStatus
}

// AutoVerifyPolicy treats a confirmed fee payment as completing verification
type AutoVerifyPolicy struct{}

// StatusOnFeePaid returns verified
func (AutoVerifyPolicy) StatusOnFeePaid() models.KYCStatus { return models.KYCStatusVerified }

// ManualReviewPolicy parks paid users in a review queue until an admin decides
type ManualReviewPolicy struct{}

// StatusOnFeePaid returns pending_review
func (ManualReviewPolicy) StatusOnFeePaid() models.KYCStatus { return models.KYCStatusPendingReview }

// PolicyFromName maps a config value to a policy, defaulting to auto-verify
func PolicyFromName(name string) VerdictPolicy {
	if name == "manual_review" {
		return ManualReviewPolicy{}
	}
	return AutoVerifyPolicy{}
}
