package gatewaytest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/taskrupee/backend/internal/services/gateway"
	"github.com/taskrupee/backend/internal/utils"
)

// Fake is a deterministic in-memory gateway for tests. It honors the same
// idempotency-key contract as the real provider: repeated CreateOrder or
// InitiatePayout calls with the same key do not create duplicates.
type Fake struct {
	mu sync.Mutex

	Secret string

	orders        map[string]*gateway.Order
	payments      map[string]*gateway.PaymentResult
	beneficiaries map[string]gateway.BeneficiaryRequest
	transfers     map[string]gateway.TransferStatus

	CreateOrderCalls    int
	InitiatePayoutCalls int

	// FailNext makes the next call of the named operation fail transiently
	FailNext map[string]int
}

// New creates an empty fake with the given webhook secret
func New(secret string) *Fake {
	return &Fake{
		Secret:        secret,
		orders:        make(map[string]*gateway.Order),
		payments:      make(map[string]*gateway.PaymentResult),
		beneficiaries: make(map[string]gateway.BeneficiaryRequest),
		transfers:     make(map[string]gateway.TransferStatus),
		FailNext:      make(map[string]int),
	}
}

func (f *Fake) failNext(op string) error {
	if f.FailNext[op] > 0 {
		f.FailNext[op]--
		return &gateway.Error{Op: op, Transient: true, Err: fmt.Errorf("injected failure")}
	}
	return nil
}

// CreateOrder records the order; the same OrderID returns the existing order
func (f *Fake) CreateOrder(_ context.Context, req gateway.CreateOrderRequest) (*gateway.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNext("create_order"); err != nil {
		return nil, err
	}
	f.CreateOrderCalls++

	if existing, ok := f.orders[req.OrderID]; ok {
		return existing, nil
	}
	order := &gateway.Order{
		OrderID:           req.OrderID,
		GatewayOrderID:    "cf_" + req.OrderID,
		PaymentSessionRef: "session_" + req.OrderID,
		Amount:            req.Amount,
		Currency:          req.Currency,
		Status:            "ACTIVE",
	}
	f.orders[req.OrderID] = order
	f.payments[req.OrderID] = &gateway.PaymentResult{Status: gateway.PaymentStatusPending, Amount: req.Amount}
	return order, nil
}

// MarkPaid simulates the customer completing payment for an order
func (f *Fake) MarkPaid(orderID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments[orderID] = &gateway.PaymentResult{
		Status:           gateway.PaymentStatusPaid,
		GatewayPaymentID: "pay_" + orderID,
	}
}

// MarkPaymentFailed simulates a failed payment attempt
func (f *Fake) MarkPaymentFailed(orderID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments[orderID] = &gateway.PaymentResult{Status: gateway.PaymentStatusFailed}
}

// VerifyPayment returns the recorded payment status for an order
func (f *Fake) VerifyPayment(_ context.Context, orderID string) (*gateway.PaymentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNext("verify_payment"); err != nil {
		return nil, err
	}
	if result, ok := f.payments[orderID]; ok {
		return result, nil
	}
	return &gateway.PaymentResult{Status: gateway.PaymentStatusPending}, nil
}

// CreateBeneficiary registers a payout destination; repeats are no-ops
func (f *Fake) CreateBeneficiary(_ context.Context, req gateway.BeneficiaryRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNext("create_beneficiary"); err != nil {
		return err
	}
	if _, ok := f.beneficiaries[req.BeneID]; !ok {
		f.beneficiaries[req.BeneID] = req
	}
	return nil
}

// InitiatePayout starts a transfer; the same TransferID returns its status
func (f *Fake) InitiatePayout(_ context.Context, req gateway.PayoutRequest) (gateway.TransferStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNext("initiate_payout"); err != nil {
		return "", err
	}
	f.InitiatePayoutCalls++

	if status, ok := f.transfers[req.TransferID]; ok {
		return status, nil
	}
	if _, ok := f.beneficiaries[req.BeneID]; !ok {
		return "", &gateway.Error{Op: "initiate_payout", Code: "404", Err: fmt.Errorf("unknown beneficiary %s", req.BeneID)}
	}
	f.transfers[req.TransferID] = gateway.TransferStatusPending
	return gateway.TransferStatusPending, nil
}

// SetTransferStatus drives a transfer to a terminal state
func (f *Fake) SetTransferStatus(transferID string, status gateway.TransferStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers[transferID] = status
}

// GetTransferStatus returns the recorded transfer status
func (f *Fake) GetTransferStatus(_ context.Context, transferID string) (gateway.TransferStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNext("get_transfer_status"); err != nil {
		return "", err
	}
	if status, ok := f.transfers[transferID]; ok {
		return status, nil
	}
	return "", &gateway.Error{Op: "get_transfer_status", Code: "404", Err: fmt.Errorf("unknown transfer %s", transferID)}
}

type fakeWebhookBody struct {
	OrderID          string `json:"order_id"`
	Status           string `json:"status"`
	GatewayPaymentID string `json:"gateway_payment_id"`
}

// SignedWebhook builds a payload and valid signature for tests
func (f *Fake) SignedWebhook(orderID string, status gateway.PaymentStatus) ([]byte, string) {
	payload, _ := json.Marshal(fakeWebhookBody{
		OrderID:          orderID,
		Status:           string(status),
		GatewayPaymentID: "pay_" + orderID,
	})
	return payload, utils.SignHMAC(string(payload), f.Secret)
}

// ParseWebhook verifies the signature and decodes the fake payload shape
func (f *Fake) ParseWebhook(payload []byte, signature string) (*gateway.WebhookEvent, error) {
	if !utils.VerifyHMAC(string(payload), signature, f.Secret) {
		return nil, gateway.ErrBadSignature
	}
	var body fakeWebhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, &gateway.Error{Op: "parse_webhook", Err: err}
	}
	return &gateway.WebhookEvent{
		OrderID:          body.OrderID,
		Status:           gateway.PaymentStatus(body.Status),
		GatewayPaymentID: body.GatewayPaymentID,
	}, nil
}
