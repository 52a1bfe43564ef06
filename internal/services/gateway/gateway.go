package gateway

import (
	"context"
)

// Customer identifies the paying user to the gateway
type Customer struct {
	ID    string
	Email string
	Phone string
	Name  string
}

// CreateOrderRequest creates a payable order. OrderID is caller-supplied and
// acts as the idempotency key: the same OrderID must never yield two orders.
type CreateOrderRequest struct {
	OrderID   string
	Amount    int64 // paise
	Currency  string
	Customer  Customer
	ReturnURL string
	NotifyURL string
}

// Order is the gateway's view of a payable order
type Order struct {
	OrderID           string
	GatewayOrderID    string
	PaymentSessionRef string
	Amount            int64
	Currency          string
	Status            string
}

// PaymentStatus is the gateway-side status of a payment attempt
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// PaymentResult is the verified status of an order's payment
type PaymentResult struct {
	Status           PaymentStatus
	Amount           int64
	GatewayPaymentID string
}

// BeneficiaryRequest registers a payout destination. BeneID is the caller's
// idempotency key; registering the same BeneID twice is a no-op.
type BeneficiaryRequest struct {
	BeneID      string
	Name        string
	Email       string
	Phone       string
	UPIID       string
	BankAccount string
	IFSC        string
}

// PayoutRequest initiates a transfer to a beneficiary. TransferID is the
// idempotency key.
type PayoutRequest struct {
	BeneID     string
	Amount     int64 // paise
	TransferID string
	Remarks    string
}

// TransferStatus is the gateway-side status of a payout transfer
type TransferStatus string

const (
	TransferStatusSuccess TransferStatus = "success"
	TransferStatusPending TransferStatus = "pending"
	TransferStatusFailed  TransferStatus = "failed"
)

// WebhookEvent is a parsed, signature-verified payment notification
type WebhookEvent struct {
	OrderID          string
	Status           PaymentStatus
	GatewayPaymentID string
}

// Gateway wraps the third-party payment service. Implementations carry no
// business state; all idempotency keys come from the caller.
type Gateway interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error)
	VerifyPayment(ctx context.Context, orderID string) (*PaymentResult, error)
	CreateBeneficiary(ctx context.Context, req BeneficiaryRequest) error
	InitiatePayout(ctx context.Context, req PayoutRequest) (TransferStatus, error)
	GetTransferStatus(ctx context.Context, transferID string) (TransferStatus, error)

	// ParseWebhook verifies the payload signature before trusting any field.
	// Unverifiable payloads return ErrBadSignature and must never be acted on.
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
