package models

import (
	"time"

	"github.com/google/uuid"
)

// KYCVerdict is the outcome of a single verification attempt
type KYCVerdict string

const (
	KYCVerdictPending  KYCVerdict = "pending"
	KYCVerdictVerified KYCVerdict = "verified"
	KYCVerdictRejected KYCVerdict = "rejected"
)

// KYCSubmission is one verification attempt. A rejected submission allows
// exactly one new submission cycle; history is kept for audit.
type KYCSubmission struct {
	Base
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User            User       `gorm:"foreignKey:UserID" json:"-"`
	DocumentRefs    StringList `gorm:"type:text;not null" json:"document_refs"`
	SubmittedAt     time.Time  `json:"submitted_at"`
	Verdict         KYCVerdict `gorm:"type:varchar(20);not null;default:'pending'" json:"verdict"`
	RejectionReason *string    `gorm:"type:text" json:"rejection_reason,omitempty"`
}
