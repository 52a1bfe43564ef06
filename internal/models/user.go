package models

import (
	"github.com/google/uuid"
)

// AccountStatus represents whether a user may currently earn task rewards
type AccountStatus string

const (
	AccountStatusActive              AccountStatus = "active"
	AccountStatusSuspended           AccountStatus = "suspended"
	AccountStatusPendingReactivation AccountStatus = "pending_reactivation"
)

// KYCStatus represents the user's identity-verification state
type KYCStatus string

const (
	KYCStatusNotSubmitted      KYCStatus = "not_submitted"
	KYCStatusDocumentsUploaded KYCStatus = "documents_uploaded"
	KYCStatusPaymentPending    KYCStatus = "payment_pending"
	KYCStatusPendingReview     KYCStatus = "pending_review"
	KYCStatusVerified          KYCStatus = "verified"
	KYCStatusRejected          KYCStatus = "rejected"
)

// User represents a platform user. Users are soft-archived, never hard-deleted.
type User struct {
	Base
	Email            string        `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FirstName        string        `gorm:"type:varchar(100)" json:"first_name"`
	LastName         string        `gorm:"type:varchar(100)" json:"last_name"`
	PasswordHash     string        `gorm:"type:varchar(255);not null" json:"-"`
	PhoneNumber      *string       `gorm:"type:varchar(20)" json:"phone_number"`
	IsAdmin          bool          `gorm:"default:false" json:"is_admin"`
	AccountStatus    AccountStatus `gorm:"type:varchar(25);not null;default:'active'" json:"account_status"`
	KYCStatus        KYCStatus     `gorm:"type:varchar(25);not null;default:'not_submitted'" json:"kyc_status"`
	SuspensionReason *string       `gorm:"type:text" json:"suspension_reason,omitempty"`
	ReferralCode     string        `gorm:"type:varchar(50);uniqueIndex;not null" json:"referral_code"`
	ReferredBy       *uuid.UUID    `gorm:"type:uuid" json:"referred_by,omitempty"`
}
