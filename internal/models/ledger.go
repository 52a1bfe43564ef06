package models

import (
	"github.com/google/uuid"
)

// LedgerEntryKind classifies a ledger entry. The (user, kind, source) triple is
// unique, which is the sole defense against double-crediting.
type LedgerEntryKind string

const (
	LedgerKindTaskReward      LedgerEntryKind = "task_reward"
	LedgerKindReferralBonus   LedgerEntryKind = "referral_bonus"
	LedgerKindWithdrawalDebit LedgerEntryKind = "withdrawal_debit"
	LedgerKindRefund          LedgerEntryKind = "refund"
)

// LedgerEntry is an immutable record of a single credit or debit.
// Amounts are signed integer paise; floats are never used for money.
type LedgerEntry struct {
	Base
	UserID   uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_ledger_user_kind_source,priority:1" json:"user_id"`
	User     User            `gorm:"foreignKey:UserID" json:"-"`
	Kind     LedgerEntryKind `gorm:"type:varchar(30);not null;uniqueIndex:idx_ledger_user_kind_source,priority:2" json:"kind"`
	SourceID string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_ledger_user_kind_source,priority:3" json:"source_id"`
	Amount   int64           `gorm:"not null" json:"amount"`
}

// ReservationStatus tracks the lifecycle of a balance hold
type ReservationStatus string

const (
	ReservationStatusActive   ReservationStatus = "active"
	ReservationStatusConsumed ReservationStatus = "consumed"
	ReservationStatusReleased ReservationStatus = "released"
)

// Reservation is a temporary hold on available balance pending withdrawal
// completion. Active reservations reduce the available balance projection.
type Reservation struct {
	Base
	UserID  uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	User    User              `gorm:"foreignKey:UserID" json:"-"`
	Amount  int64             `gorm:"not null" json:"amount"`
	Status  ReservationStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	EntryID *uuid.UUID        `gorm:"type:uuid" json:"entry_id,omitempty"`
}
