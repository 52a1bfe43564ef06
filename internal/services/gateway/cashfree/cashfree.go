package cashfree

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/taskrupee/backend/internal/config"
	"github.com/taskrupee/backend/internal/services/gateway"
	"github.com/taskrupee/backend/internal/utils"
)

const apiVersion = "2022-09-01"

// Provider implements gateway.Gateway against the Cashfree PG and Payouts APIs
type Provider struct {
	cfg    config.GatewayConfig
	client *http.Client
}

// NewProvider creates a Cashfree-backed gateway
func NewProvider(cfg config.GatewayConfig) *Provider {
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type orderRequest struct {
	OrderID         string  `json:"order_id"`
	OrderAmount     float64 `json:"order_amount"`
	OrderCurrency   string  `json:"order_currency"`
	CustomerDetails struct {
		CustomerID    string `json:"customer_id"`
		CustomerEmail string `json:"customer_email"`
		CustomerPhone string `json:"customer_phone"`
		CustomerName  string `json:"customer_name"`
	} `json:"customer_details"`
	OrderMeta struct {
		ReturnURL string `json:"return_url"`
		NotifyURL string `json:"notify_url"`
	} `json:"order_meta"`
}

type orderResponse struct {
	OrderID          string  `json:"order_id"`
	CFOrderID        string  `json:"cf_order_id"`
	PaymentSessionID string  `json:"payment_session_id"`
	OrderAmount      float64 `json:"order_amount"`
	OrderCurrency    string  `json:"order_currency"`
	OrderStatus      string  `json:"order_status"`
}

// CreateOrder creates a payable order. The caller's OrderID is the idempotency
// key; the provider returns the existing order for a repeated OrderID.
func (p *Provider) CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.Order, error) {
	body := orderRequest{
		OrderID:       req.OrderID,
		OrderAmount:   paiseToRupees(req.Amount),
		OrderCurrency: req.Currency,
	}
	body.CustomerDetails.CustomerID = req.Customer.ID
	body.CustomerDetails.CustomerEmail = req.Customer.Email
	body.CustomerDetails.CustomerPhone = req.Customer.Phone
	body.CustomerDetails.CustomerName = req.Customer.Name
	body.OrderMeta.ReturnURL = req.ReturnURL
	body.OrderMeta.NotifyURL = req.NotifyURL

	var resp orderResponse
	if err := p.doPG(ctx, http.MethodPost, "/orders", body, &resp); err != nil {
		return nil, err
	}

	return &gateway.Order{
		OrderID:           resp.OrderID,
		GatewayOrderID:    resp.CFOrderID,
		PaymentSessionRef: resp.PaymentSessionID,
		Amount:            rupeesToPaise(resp.OrderAmount),
		Currency:          resp.OrderCurrency,
		Status:            resp.OrderStatus,
	}, nil
}

type paymentEntry struct {
	CFPaymentID   json.Number `json:"cf_payment_id"`
	PaymentStatus string      `json:"payment_status"`
	PaymentAmount float64     `json:"payment_amount"`
}

// VerifyPayment fetches the authoritative payment status for an order
func (p *Provider) VerifyPayment(ctx context.Context, orderID string) (*gateway.PaymentResult, error) {
	var payments []paymentEntry
	path := fmt.Sprintf("/orders/%s/payments", url.PathEscape(orderID))
	if err := p.doPG(ctx, http.MethodGet, path, nil, &payments); err != nil {
		return nil, err
	}

	result := &gateway.PaymentResult{Status: gateway.PaymentStatusPending}
	for _, pay := range payments {
		switch pay.PaymentStatus {
		case "SUCCESS":
			return &gateway.PaymentResult{
				Status:           gateway.PaymentStatusPaid,
				Amount:           rupeesToPaise(pay.PaymentAmount),
				GatewayPaymentID: pay.CFPaymentID.String(),
			}, nil
		case "FAILED", "CANCELLED", "USER_DROPPED":
			result = &gateway.PaymentResult{
				Status:           gateway.PaymentStatusFailed,
				Amount:           rupeesToPaise(pay.PaymentAmount),
				GatewayPaymentID: pay.CFPaymentID.String(),
			}
		}
	}
	return result, nil
}

type beneficiaryRequest struct {
	BeneID      string `json:"beneId"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	VPA         string `json:"vpa,omitempty"`
	BankAccount string `json:"bankAccount,omitempty"`
	IFSC        string `json:"ifsc,omitempty"`
	Address1    string `json:"address1"`
}

// CreateBeneficiary registers a payout destination. A beneficiary that already
// exists under the same BeneID is treated as success.
func (p *Provider) CreateBeneficiary(ctx context.Context, req gateway.BeneficiaryRequest) error {
	body := beneficiaryRequest{
		BeneID:      req.BeneID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		VPA:         req.UPIID,
		BankAccount: req.BankAccount,
		IFSC:        req.IFSC,
		Address1:    "NA",
	}

	var resp struct {
		SubCode string `json:"subCode"`
		Message string `json:"message"`
	}
	err := p.doPayout(ctx, http.MethodPost, "/addBeneficiary", body, &resp)
	if err != nil {
		var gerr *gateway.Error
		// 409: beneficiary already registered under this id
		if errors.As(err, &gerr) && gerr.Code == "409" {
			return nil
		}
		return err
	}
	return nil
}

type transferRequest struct {
	BeneID     string  `json:"beneId"`
	Amount     float64 `json:"amount"`
	TransferID string  `json:"transferId"`
	Remarks    string  `json:"remarks,omitempty"`
}

// InitiatePayout starts a transfer keyed by TransferID; retries with the same
// TransferID do not produce a second transfer.
func (p *Provider) InitiatePayout(ctx context.Context, req gateway.PayoutRequest) (gateway.TransferStatus, error) {
	body := transferRequest{
		BeneID:     req.BeneID,
		Amount:     paiseToRupees(req.Amount),
		TransferID: req.TransferID,
		Remarks:    req.Remarks,
	}

	var resp struct {
		SubCode string `json:"subCode"`
		Status  string `json:"status"`
		Data    struct {
			ReferenceID string `json:"referenceId"`
		} `json:"data"`
	}
	if err := p.doPayout(ctx, http.MethodPost, "/requestTransfer", body, &resp); err != nil {
		return "", err
	}
	return transferStatusFrom(resp.Status), nil
}

// GetTransferStatus polls an in-flight transfer
func (p *Provider) GetTransferStatus(ctx context.Context, transferID string) (gateway.TransferStatus, error) {
	var resp struct {
		Data struct {
			Transfer struct {
				Status string `json:"status"`
			} `json:"transfer"`
		} `json:"data"`
	}
	path := "/getTransferStatus?transferId=" + url.QueryEscape(transferID)
	if err := p.doPayout(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return transferStatusFrom(resp.Data.Transfer.Status), nil
}

type webhookPayload struct {
	Data struct {
		Order struct {
			OrderID string `json:"order_id"`
		} `json:"order"`
		Payment struct {
			CFPaymentID   json.Number `json:"cf_payment_id"`
			PaymentStatus string      `json:"payment_status"`
		} `json:"payment"`
	} `json:"data"`
	Type string `json:"type"`
}

// ParseWebhook verifies the HMAC signature before trusting any field
func (p *Provider) ParseWebhook(payload []byte, signature string) (*gateway.WebhookEvent, error) {
	if !utils.VerifyHMAC(string(payload), signature, p.cfg.WebhookSecret) {
		return nil, gateway.ErrBadSignature
	}

	var body webhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, &gateway.Error{Op: "parse_webhook", Err: err}
	}

	status := gateway.PaymentStatusPending
	switch body.Data.Payment.PaymentStatus {
	case "SUCCESS":
		status = gateway.PaymentStatusPaid
	case "FAILED", "CANCELLED", "USER_DROPPED":
		status = gateway.PaymentStatusFailed
	}

	return &gateway.WebhookEvent{
		OrderID:          body.Data.Order.OrderID,
		Status:           status,
		GatewayPaymentID: body.Data.Payment.CFPaymentID.String(),
	}, nil
}

const maxAttempts = 3

// doPG calls the payment-gateway API with bounded retries on transient errors.
// Retries are safe because every mutating call carries an idempotency key.
func (p *Provider) doPG(ctx context.Context, method, path string, body, out interface{}) error {
	return p.do(ctx, method, p.cfg.BaseURL+path, body, out, func(req *http.Request) {
		req.Header.Set("x-client-id", p.cfg.ClientID)
		req.Header.Set("x-client-secret", p.cfg.ClientSecret)
		req.Header.Set("x-api-version", apiVersion)
	})
}

func (p *Provider) doPayout(ctx context.Context, method, path string, body, out interface{}) error {
	return p.do(ctx, method, p.cfg.PayoutBaseURL+path, body, out, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+p.cfg.ClientSecret)
	})
}

func (p *Provider) do(ctx context.Context, method, fullURL string, body, out interface{}, auth func(*http.Request)) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return &gateway.Error{Op: method + " " + fullURL, Err: err}
		}
	}

	backoff := 500 * time.Millisecond
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return &gateway.Error{Op: fullURL, Transient: true, Err: ctx.Err()}
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(payload))
		if err != nil {
			return &gateway.Error{Op: fullURL, Err: err}
		}
		req.Header.Set("Content-Type", "application/json")
		auth(req)

		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = &gateway.Error{Op: fullURL, Transient: true, Err: err}
			log.Warn().Err(err).Str("url", fullURL).Int("attempt", attempt+1).Msg("gateway request failed")
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = &gateway.Error{Op: fullURL, Transient: true, Err: readErr}
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(respBody, out); err != nil {
				return &gateway.Error{Op: fullURL, Err: err}
			}
			return nil
		case resp.StatusCode >= 500:
			lastErr = &gateway.Error{Op: fullURL, Code: fmt.Sprint(resp.StatusCode), Transient: true}
			log.Warn().Int("status", resp.StatusCode).Str("url", fullURL).Int("attempt", attempt+1).Msg("gateway 5xx")
			continue
		default:
			return &gateway.Error{Op: fullURL, Code: fmt.Sprint(resp.StatusCode), Err: fmt.Errorf("%s", respBody)}
		}
	}
	return lastErr
}

func paiseToRupees(paise int64) float64 {
	return float64(paise) / 100
}

func rupeesToPaise(rupees float64) int64 {
	return int64(rupees*100 + 0.5)
}

func transferStatusFrom(s string) gateway.TransferStatus {
	switch s {
	case "SUCCESS", "COMPLETED":
		return gateway.TransferStatusSuccess
	case "FAILED", "REJECTED", "ERROR", "REVERSED":
		return gateway.TransferStatusFailed
	default:
		return gateway.TransferStatusPending
	}
}
