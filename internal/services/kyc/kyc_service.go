package kyc

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

// ReferralNotifier is told when a user reaches verified, so the referrer can
// be credited. Implementations must tolerate duplicate notifications.
type ReferralNotifier interface {
	NotifyVerified(userID uuid.UUID) error
}

// Service drives a user's identity-verification status through document
// submission and a paid verification fee.
type Service struct {
	db       *gorm.DB
	gw       gateway.Gateway
	platform config.PlatformConfig
	gwCfg    config.GatewayConfig
	policy   VerdictPolicy
	notifier ReferralNotifier
}

// NewService creates a new KYC service
func NewService(db *gorm.DB, gw gateway.Gateway, cfg *config.Config, policy VerdictPolicy, notifier ReferralNotifier) *Service {
	return &Service{
		db:       db,
		gw:       gw,
		platform: cfg.Platform,
		gwCfg:    cfg.Gateway,
		policy:   policy,
		notifier: notifier,
	}
}

// SubmitDocuments records a verification attempt. Valid only from
// not_submitted or rejected; a user never has two pending submissions.
func (s *Service) SubmitDocuments(userID uuid.UUID, documentRefs []string) (*models.KYCSubmission, error) {
	if len(documentRefs) == 0 {
		return nil, ErrNoDocuments
	}

	var submission models.KYCSubmission
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := database.LockForUpdate(tx).First(&user, "id = ?", userID).Error; err != nil {
			return fmt.Errorf("finding user: %w", err)
		}

		if user.KYCStatus != models.KYCStatusNotSubmitted && user.KYCStatus != models.KYCStatusRejected {
			return ErrInvalidState
		}

		submission = models.KYCSubmission{
			UserID:       userID,
			DocumentRefs: documentRefs,
			SubmittedAt:  time.Now(),
			Verdict:      models.KYCVerdictPending,
		}
		if err := tx.Create(&submission).Error; err != nil {
			return fmt.Errorf("creating submission: %w", err)
		}

		return tx.Model(&user).Update("kyc_status", models.KYCStatusDocumentsUploaded).Error
	})
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// InitiatePayment creates the KYC fee order. The amount is a platform
// constant, never client-supplied. Valid only from documents_uploaded.
func (s *Service) InitiatePayment(ctx context.Context, userID uuid.UUID) (*models.PaymentOrder, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if user.KYCStatus != models.KYCStatusDocumentsUploaded {
		return nil, ErrInvalidState
	}

	order := models.PaymentOrder{
		OrderID:  utils.NewReference("KYC"),
		UserID:   userID,
		Purpose:  models.PaymentPurposeKYCFee,
		Amount:   s.platform.KYCFee,
		Currency: s.platform.Currency,
		Status:   models.PaymentOrderStatusCreated,
	}
	if err := s.db.Create(&order).Error; err != nil {
		return nil, fmt.Errorf("creating payment order: %w", err)
	}

	gwOrder, err := s.gw.CreateOrder(ctx, gateway.CreateOrderRequest{
		OrderID:   order.OrderID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		Customer:  customerFrom(&user),
		ReturnURL: s.gwCfg.ReturnURL,
		NotifyURL: s.gwCfg.NotifyURL,
	})
	if err != nil {
		// The user stays in documents_uploaded and can retry
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
		return tx.Model(&models.User{}).Where("id = ? AND kyc_status = ?", userID, models.KYCStatusDocumentsUploaded).
			Update("kyc_status", models.KYCStatusPaymentPending).Error
	})
	if err != nil {
		return nil, fmt.Errorf("recording payment order: %w", err)
	}

	order.GatewayOrderID = gwOrder.GatewayOrderID
	order.PaymentSessionRef = gwOrder.PaymentSessionRef
	return &order, nil
}

// ConfirmPayment handles a verified payment confirmation for a KYC fee order.
// Idempotent: confirming an already-paid order is a no-op. Invoked only by
// webhook reconciliation or an explicit verified poll, never by the client.
func (s *Service) ConfirmPayment(orderID string) error {
	verified := false
	var userID uuid.UUID

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order models.PaymentOrder
		if err := tx.First(&order, "order_id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("finding order: %w", err)
		}
		if order.Purpose != models.PaymentPurposeKYCFee {
			return ErrWrongPurpose
		}
		if order.Status.IsTerminal() {
			return nil
		}

		var user models.User
		if err := database.LockForUpdate(tx).First(&user, "id = ?", order.UserID).Error; err != nil {
			return fmt.Errorf("finding user: %w", err)
		}
		userID = user.ID

		if user.KYCStatus != models.KYCStatusPaymentPending {
			// Out-of-order or stale confirmation; leave state untouched
			return ErrInvalidState
		}

		now := time.Now()
		if err := tx.Model(&order).Updates(map[string]interface{}{
			"status":  models.PaymentOrderStatusPaid,
			"paid_at": now,
		}).Error; err != nil {
			return fmt.Errorf("marking order paid: %w", err)
		}

		next := s.policy.StatusOnFeePaid()
		if err := tx.Model(&user).Update("kyc_status", next).Error; err != nil {
			return fmt.Errorf("updating kyc status: %w", err)
		}

		if next == models.KYCStatusVerified {
			verified = true
			return markPendingSubmission(tx, user.ID, models.KYCVerdictVerified, nil)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if verified {
		s.notifyVerified(userID)
	}
	return nil
}

// FailPayment records a failed fee payment and returns the user to
// documents_uploaded so the flow can be retried.
func (s *Service) FailPayment(orderID string) error {
	return s.rollbackOrder(orderID, models.PaymentOrderStatusFailed)
}

// ExpireOrder expires an order that never received a confirmation, moving the
// user back to a re-initiable state.
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
		if order.Purpose != models.PaymentPurposeKYCFee {
			return ErrWrongPurpose
		}
		if order.Status.IsTerminal() {
			return nil
		}

		if err := tx.Model(&order).Update("status", terminal).Error; err != nil {
			return fmt.Errorf("marking order %s: %w", terminal, err)
		}

		return tx.Model(&models.User{}).
			Where("id = ? AND kyc_status = ?", order.UserID, models.KYCStatusPaymentPending).
			Update("kyc_status", models.KYCStatusDocumentsUploaded).Error
	})
}

// AdminApprove verifies a user awaiting manual review
func (s *Service) AdminApprove(userID uuid.UUID) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := database.LockForUpdate(tx).First(&user, "id = ?", userID).Error; err != nil {
			return fmt.Errorf("finding user: %w", err)
		}
		if user.KYCStatus != models.KYCStatusPendingReview {
			return ErrInvalidState
		}
		if err := tx.Model(&user).Update("kyc_status", models.KYCStatusVerified).Error; err != nil {
			return err
		}
		return markPendingSubmission(tx, userID, models.KYCVerdictVerified, nil)
	})
	if err != nil {
		return err
	}

	s.notifyVerified(userID)
	return nil
}

// AdminReject rejects a user's verification attempt with a reason. Valid
// while the attempt is still in flight; allows one new submission cycle.
func (s *Service) AdminReject(userID uuid.UUID, reason string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := database.LockForUpdate(tx).First(&user, "id = ?", userID).Error; err != nil {
			return fmt.Errorf("finding user: %w", err)
		}

		switch user.KYCStatus {
		case models.KYCStatusDocumentsUploaded, models.KYCStatusPaymentPending, models.KYCStatusPendingReview:
		default:
			return ErrInvalidState
		}

		if err := tx.Model(&user).Update("kyc_status", models.KYCStatusRejected).Error; err != nil {
			return err
		}

		// Close out any open fee order for this user
		if err := tx.Model(&models.PaymentOrder{}).
			Where("user_id = ? AND purpose = ? AND status = ?", userID, models.PaymentPurposeKYCFee, models.PaymentOrderStatusCreated).
			Update("status", models.PaymentOrderStatusExpired).Error; err != nil {
			return err
		}

		return markPendingSubmission(tx, userID, models.KYCVerdictRejected, &reason)
	})
}

// PendingReview lists submissions awaiting a manual verdict
func (s *Service) PendingReview() ([]models.KYCSubmission, error) {
	var submissions []models.KYCSubmission
	err := s.db.
		Joins("JOIN users ON users.id = kyc_submissions.user_id").
		Where("kyc_submissions.verdict = ? AND users.kyc_status = ?", models.KYCVerdictPending, models.KYCStatusPendingReview).
		Order("kyc_submissions.submitted_at ASC").
		Find(&submissions).Error
	return submissions, err
}

// Status returns the user's KYC status and latest submission, if any
func (s *Service) Status(userID uuid.UUID) (models.KYCStatus, *models.KYCSubmission, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return "", nil, fmt.Errorf("finding user: %w", err)
	}

	var submission models.KYCSubmission
	err := s.db.Where("user_id = ?", userID).Order("submitted_at DESC").First(&submission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return user.KYCStatus, nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("finding submission: %w", err)
	}
	return user.KYCStatus, &submission, nil
}

func (s *Service) notifyVerified(userID uuid.UUID) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyVerified(userID); err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to notify referral engine")
	}
}

// markPendingSubmission writes a verdict on the user's open submission
func markPendingSubmission(tx *gorm.DB, userID uuid.UUID, verdict models.KYCVerdict, reason *string) error {
	updates := map[string]interface{}{"verdict": verdict}
	if reason != nil {
		updates["rejection_reason"] = *reason
	}
	return tx.Model(&models.KYCSubmission{}).
		Where("user_id = ? AND verdict = ?", userID, models.KYCVerdictPending).
		Updates(updates).Error
}

func customerFrom(user *models.User) gateway.Customer {
	phone := ""
	if user.PhoneNumber != nil {
		phone = *user.PhoneNumber
	}
	return gateway.Customer{
		ID:    user.ID.String(),
		Email: user.Email,
		Phone: phone,
		Name:  user.FirstName + " " + user.LastName,
	}
}
