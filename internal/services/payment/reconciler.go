package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/taskrupee/backend/internal/config"
	"github.com/taskrupee/backend/internal/models"
	"github.com/taskrupee/backend/internal/services/gateway"
)

// KYCConfirmer settles KYC fee orders
type KYCConfirmer interface {
	ConfirmPayment(orderID string) error
	FailPayment(orderID string) error
	ExpireOrder(orderID string) error
}

// AccountConfirmer settles reactivation fee orders
type AccountConfirmer interface {
	ConfirmReactivation(orderID string) error
	FailPayment(orderID string) error
	ExpireOrder(orderID string) error
}

// Reconciler converts verified gateway notifications into order settlements
// and periodically sweeps orders the gateway never reported on. It never
// trusts a notification by itself; stale orders are re-verified against the
// gateway before being settled.
type Reconciler struct {
	db       *gorm.DB
	gw       gateway.Gateway
	kyc      KYCConfirmer
	account  AccountConfirmer
	platform config.PlatformConfig
}

// NewReconciler creates a new payment reconciler
func NewReconciler(db *gorm.DB, gw gateway.Gateway, kyc KYCConfirmer, account AccountConfirmer, cfg *config.Config) *Reconciler {
	return &Reconciler{db: db, gw: gw, kyc: kyc, account: account, platform: cfg.Platform}
}

// HandleEvent applies a signature-verified webhook event. Events for unknown
// orders are logged and dropped; replays of settled orders are no-ops.
func (r *Reconciler) HandleEvent(event *gateway.WebhookEvent) error {
	var order models.PaymentOrder
	if err := r.db.First(&order, "order_id = ?", event.OrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Str("order_id", event.OrderID).Msg("webhook for unknown order, ignoring")
			return nil
		}
		return fmt.Errorf("finding order: %w", err)
	}

	if event.GatewayPaymentID != "" && order.GatewayPaymentID == "" {
		if err := r.db.Model(&order).Update("gateway_payment_id", event.GatewayPaymentID).Error; err != nil {
			log.Error().Err(err).Str("order_id", order.OrderID).Msg("failed to record gateway payment id")
		}
	}

	switch event.Status {
	case gateway.PaymentStatusPaid:
		return r.confirm(&order)
	case gateway.PaymentStatusFailed:
		return r.fail(&order)
	default:
		// Pending notifications carry no state change
		return nil
	}
}

// VerifyAndSettle re-checks an order with the gateway and settles it if the
// gateway reports a terminal payment. Used by return-URL polling endpoints;
// the client's claim is never trusted, only the gateway's answer. The lookup
// is scoped to userID so callers can only poll their own orders.
func (r *Reconciler) VerifyAndSettle(ctx context.Context, orderID string, userID uuid.UUID) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	if err := r.db.First(&order, "order_id = ? AND user_id = ?", orderID, userID).Error; err != nil {
		return nil, err
	}

	if !order.Status.IsTerminal() {
		result, err := r.gw.VerifyPayment(ctx, order.OrderID)
		if err != nil {
			return nil, fmt.Errorf("verifying payment: %w", err)
		}

		switch result.Status {
		case gateway.PaymentStatusPaid:
			if err := r.confirm(&order); err != nil {
				return nil, err
			}
		case gateway.PaymentStatusFailed:
			if err := r.fail(&order); err != nil {
				return nil, err
			}
		}
	}

	if err := r.db.First(&order, "order_id = ? AND user_id = ?", orderID, userID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// Sweep finds orders still open past the timeout, asks the gateway for their
// true status, and settles them. Covers webhooks that were never delivered.
func (r *Reconciler) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-time.Duration(r.platform.OrderTimeoutHours) * time.Hour)

	var orders []models.PaymentOrder
	if err := r.db.Where("status = ? AND created_at < ?", models.PaymentOrderStatusCreated, cutoff).
		Limit(100).Find(&orders).Error; err != nil {
		return fmt.Errorf("finding stale orders: %w", err)
	}

	for i := range orders {
		order := &orders[i]
		if err := r.sweepOrder(ctx, order); err != nil {
			log.Error().Err(err).Str("order_id", order.OrderID).Msg("failed to reconcile stale order")
		}
	}
	return nil
}

func (r *Reconciler) sweepOrder(ctx context.Context, order *models.PaymentOrder) error {
	result, err := r.gw.VerifyPayment(ctx, order.OrderID)
	if err != nil {
		return fmt.Errorf("verifying payment: %w", err)
	}

	switch result.Status {
	case gateway.PaymentStatusPaid:
		log.Info().Str("order_id", order.OrderID).Msg("sweep found paid order with no webhook")
		return r.confirm(order)
	case gateway.PaymentStatusFailed:
		return r.fail(order)
	default:
		// Still unpaid past the timeout: expire so the user can start over
		return r.expire(order)
	}
}

func (r *Reconciler) confirm(order *models.PaymentOrder) error {
	switch order.Purpose {
	case models.PaymentPurposeKYCFee:
		return r.kyc.ConfirmPayment(order.OrderID)
	case models.PaymentPurposeReactivationFee:
		return r.account.ConfirmReactivation(order.OrderID)
	default:
		return fmt.Errorf("unknown order purpose %q", order.Purpose)
	}
}

func (r *Reconciler) fail(order *models.PaymentOrder) error {
	switch order.Purpose {
	case models.PaymentPurposeKYCFee:
		return r.kyc.FailPayment(order.OrderID)
	case models.PaymentPurposeReactivationFee:
		return r.account.FailPayment(order.OrderID)
	default:
		return fmt.Errorf("unknown order purpose %q", order.Purpose)
	}
}

func (r *Reconciler) expire(order *models.PaymentOrder) error {
	switch order.Purpose {
	case models.PaymentPurposeKYCFee:
		return r.kyc.ExpireOrder(order.OrderID)
	case models.PaymentPurposeReactivationFee:
		return r.account.ExpireOrder(order.OrderID)
	default:
		return fmt.Errorf("unknown order purpose %q", order.Purpose)
	}
}
