package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentPurpose identifies which fee flow a payment order belongs to
type PaymentPurpose string

const (
	PaymentPurposeKYCFee          PaymentPurpose = "kyc_fee"
	PaymentPurposeReactivationFee PaymentPurpose = "reactivation_fee"
)

// PaymentOrderStatus represents the status of a payment order.
// paid, failed and expired are terminal.
type PaymentOrderStatus string

const (
	PaymentOrderStatusCreated PaymentOrderStatus = "created"
	PaymentOrderStatusPaid    PaymentOrderStatus = "paid"
	PaymentOrderStatusFailed  PaymentOrderStatus = "failed"
	PaymentOrderStatusExpired PaymentOrderStatus = "expired"
)

// IsTerminal reports whether the order can no longer change state
func (s PaymentOrderStatus) IsTerminal() bool {
	return s == PaymentOrderStatusPaid || s == PaymentOrderStatusFailed || s == PaymentOrderStatusExpired
}

// PaymentOrder represents one external payment attempt. OrderID is generated by
// us and doubles as the gateway idempotency key.
type PaymentOrder struct {
	Base
	OrderID           string             `gorm:"type:varchar(100);uniqueIndex;not null" json:"order_id"`
	UserID            uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	User              User               `gorm:"foreignKey:UserID" json:"-"`
	Purpose           PaymentPurpose     `gorm:"type:varchar(30);not null" json:"purpose"`
	Amount            int64              `gorm:"not null" json:"amount"`
	Currency          string             `gorm:"type:varchar(3);not null" json:"currency"`
	Status            PaymentOrderStatus `gorm:"type:varchar(20);not null;default:'created';index" json:"status"`
	GatewayOrderID    string             `gorm:"type:varchar(100)" json:"gateway_order_id"`
	PaymentSessionRef string             `gorm:"type:varchar(255)" json:"payment_session_ref"`
	GatewayPaymentID  string             `gorm:"type:varchar(100)" json:"gateway_payment_id"`
	PaidAt            *time.Time         `json:"paid_at,omitempty"`
}
