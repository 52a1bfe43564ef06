package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/taskrupee/backend/internal/config"
	"github.com/taskrupee/backend/internal/database"
	"github.com/taskrupee/backend/internal/models"
	"github.com/taskrupee/backend/internal/services/gateway"
	"github.com/taskrupee/backend/internal/utils"
)

var (
	// ErrInvalidState means the operation is not valid from the user's
	// current account status
	ErrInvalidState = errors.New("invalid account state transition")

	// ErrOrderNotFound means the payment order does not exist
	ErrOrderNotFound = errors.New("payment order not found")

	// ErrWrongPurpose means the order does not belong to the reactivation flow
	ErrWrongPurpose = errors.New("payment order has wrong purpose")
)

// Service drives active -> suspended -> pending_reactivation -> active.
// Suspension freezes task earning; it does not touch balance or KYC status.
type Service struct {
	db       *gorm.DB
	gw       gateway.Gateway
	platform config.PlatformConfig
	gwCfg    config.GatewayConfig
}

// NewService creates a new account status service
func NewService(db *gorm.DB, gw gateway.Gateway, cfg *config.Config) *Service {
	return &Service{db: db, gw: gw, platform: cfg.Platform, gwCfg: cfg.Gateway}
}

// Suspend freezes task earning for a user. Valid only from active.
func (s *Service) Suspend(userID uuid.UUID, reason string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := database.LockForUpdate(tx).First(&user, "id = ?", userID).Error; err != nil {
			return fmt.Errorf("finding user: %w", err)
		}
		if user.AccountStatus != models.AccountStatusActive {
			return ErrInvalidState
		}
		return tx.Model(&user).Updates(map[string]interface{}{
			"account_status":    models.AccountStatusSuspended,
			"suspension_reason": reason,
		}).Error
	})
}

// InitiateReactivation creates the reactivation fee order. Valid only from
// suspended; the fee is a platform constant.
func (s *Service) InitiateReactivation(ctx context.Context, userID uuid.UUID) (*models.PaymentOrder, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if user.AccountStatus != models.AccountStatusSuspended {
		return nil, ErrInvalidState
	}

	order := models.PaymentOrder{
		OrderID:  utils.NewReference("RCT"),
		UserID:   userID,
		Purpose:  models.PaymentPurposeReactivationFee,
		Amount:   s.platform.ReactivationFee,
		Currency: s.platform.Currency,
		Status:   models.PaymentOrderStatusCreated,
	}
	if err := s.db.Create(&order).Error; err != nil {
		return nil, fmt.Errorf("creating payment order: %w", err)
	}

	phone := ""
	if user.PhoneNumber != nil {
		phone = *user.PhoneNumber
	}
	gwOrder, err := s.gw.CreateOrder(ctx, gateway.CreateOrderRequest{
		OrderID:  order.OrderID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Customer: gateway.Customer{
			ID:    user.ID.String(),
			Email: user.Email,
			Phone: phone,
			Name:  user.FirstName + " " + user.LastName,
		},
		ReturnURL: s.gwCfg.ReturnURL,
		NotifyURL: s.gwCfg.NotifyURL,
	})
	if err != nil {
		// The user stays suspended and can retry
		if dbErr := s.db.Model(&order).Update("status", models.PaymentOrderStatusFailed).Error; dbErr != nil {
			log.Error().Err(dbErr).Str("order_id", order.OrderID).Msg("failed to mark order failed")
		}
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&order).Updates(map[string]interface{}{
			"gateway_order_id":    gwOrder.GatewayOrderID,
			"payment_session_ref": gwOrder.PaymentSessionRef,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ? AND account_status = ?", userID, models.AccountStatusSuspended).
			Update("account_status", models.AccountStatusPendingReactivation).Error
	})
	if err != nil {
		return nil, fmt.Errorf("recording payment order: %w", err)
	}

	order.GatewayOrderID = gwOrder.GatewayOrderID
	order.PaymentSessionRef = gwOrder.PaymentSessionRef
	return &order, nil
}

// ConfirmReactivation handles a verified payment confirmation for a
// reactivation fee order. Idempotent: confirming a paid order is a no-op.
func (s *Service) ConfirmReactivation(orderID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var order models.PaymentOrder
		if err := tx.First(&order, "order_id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("finding order: %w", err)
		}
		if order.Purpose != models.PaymentPurposeReactivationFee {
			return ErrWrongPurpose
		}
		if order.Status.IsTerminal() {
			return nil
		}

		var user models.User
		if err := database.LockForUpdate(tx).First(&user, "id = ?", order.UserID).Error; err != nil {
			return fmt.Errorf("finding user: %w", err)
		}
		if user.AccountStatus != models.AccountStatusPendingReactivation {
			return ErrInvalidState
		}

		now := time.Now()
		if err := tx.Model(&order).Updates(map[string]interface{}{
			"status":  models.PaymentOrderStatusPaid,
			"paid_at": now,
		}).Error; err != nil {
			return fmt.Errorf("marking order paid: %w", err)
		}

		return tx.Model(&user).Updates(map[string]interface{}{
			"account_status":    models.AccountStatusActive,
			"suspension_reason": nil,
		}).Error
	})
}

// FailPayment records a failed reactivation payment; the user returns to
// suspended and may retry.
func (s *Service) FailPayment(orderID string) error {
	return s.rollbackOrder(orderID, models.PaymentOrderStatusFailed)
}

// ExpireOrder expires a reactivation order that never got confirmed
func (s *Service) ExpireOrder(orderID string) error {
	return s.rollbackOrder(orderID, models.PaymentOrderStatusExpired)
}

func (s *Service) rollbackOrder(orderID string, terminal models.PaymentOrderStatus) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var order models.PaymentOrder
		if err := tx.First(&order, "order_id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("finding order: %w", err)
		}
		if order.Purpose != models.PaymentPurposeReactivationFee {
			return ErrWrongPurpose
		}
		if order.Status.IsTerminal() {
			return nil
		}

		if err := tx.Model(&order).Update("status", terminal).Error; err != nil {
			return fmt.Errorf("marking order %s: %w", terminal, err)
		}

		return tx.Model(&models.User{}).
			Where("id = ? AND account_status = ?", order.UserID, models.AccountStatusPendingReactivation).
			Update("account_status", models.AccountStatusSuspended).Error
	})
}
