package models

import (
	"time"

	"github.com/google/uuid"
)

// ReferralStatus tracks whether the referrer has been rewarded
type ReferralStatus string

const (
	ReferralStatusPending  ReferralStatus = "pending"
	ReferralStatusCredited ReferralStatus = "credited"
	ReferralStatusVoid     ReferralStatus = "void"
)

// ReferralRecord attributes a referred user to a referrer. Unique per referred
// user; moves to credited exactly once, when the referred user is verified.
type ReferralRecord struct {
	Base
	ReferrerID uuid.UUID      `gorm:"type:uuid;not null;index" json:"referrer_id"`
	Referrer   User           `gorm:"foreignKey:ReferrerID" json:"-"`
	ReferredID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"referred_id"`
	Referred   User           `gorm:"foreignKey:ReferredID" json:"-"`
	Status     ReferralStatus `gorm:"type:varchar(20);not null" json:"status"`
	CreditedAt *time.Time     `json:"credited_at,omitempty"`
}
