package models

import (
	"time"

	"github.com/google/uuid"
)

// WithdrawalStatus represents the state of a withdrawal request
type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusApproved   WithdrawalStatus = "approved"
	WithdrawalStatusRejected   WithdrawalStatus = "rejected"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusCompleted  WithdrawalStatus = "completed"
	WithdrawalStatusFailed     WithdrawalStatus = "failed"
)

// WithdrawalRequest is a user's request to pay out earned balance. The amount
// is reserved at creation; the ledger debit is written only on completion.
type WithdrawalRequest struct {
	Base
	UserID        uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	User          User             `gorm:"foreignKey:UserID" json:"-"`
	Amount        int64            `gorm:"not null" json:"amount"`
	PayoutMethod  JSON             `gorm:"type:text;not null" json:"payout_method"`
	Status        WithdrawalStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ReservationID uuid.UUID        `gorm:"type:uuid;not null" json:"reservation_id"`
	TransferID    string           `gorm:"type:varchar(100);index" json:"transfer_id"`
	FailureReason *string          `gorm:"type:text" json:"failure_reason,omitempty"`
	ApprovedAt    *time.Time       `json:"approved_at,omitempty"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
	FailedAt      *time.Time       `json:"failed_at,omitempty"`
}
