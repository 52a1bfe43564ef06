package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/taskrupee/backend/internal/config"
	"github.com/taskrupee/backend/internal/models"
	"github.com/taskrupee/backend/internal/queue"
	"github.com/taskrupee/backend/internal/services/gateway"
	"github.com/taskrupee/backend/internal/services/ledger"
	"github.com/taskrupee/backend/internal/utils"
)

// PayoutPayload is the job payload for payout processing and status checks
type PayoutPayload struct {
	RequestID uuid.UUID `json:"request_id"`
}

// Service manages the withdrawal lifecycle. Funds are reserved when the
// request is created; the ledger debit is written only when the payout
// succeeds, and the reservation is released on rejection or failure.
type Service struct {
	db       *gorm.DB
	gw       gateway.Gateway
	ledger   *ledger.Service
	queue    queue.Enqueuer
	platform config.PlatformConfig
}

// NewService creates a new withdrawal service
func NewService(db *gorm.DB, gw gateway.Gateway, ledgerSvc *ledger.Service, q queue.Enqueuer, cfg *config.Config) *Service {
	return &Service{db: db, gw: gw, ledger: ledgerSvc, queue: q, platform: cfg.Platform}
}

// Request creates a pending withdrawal and reserves the amount. The user must
// be verified, active, and hold at least the minimum withdrawal amount.
func (s *Service) Request(userID uuid.UUID, amount int64, payoutMethod models.JSON) (*models.WithdrawalRequest, error) {
	if amount < s.platform.MinWithdrawal {
		return nil, ErrBelowMinimum
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if user.KYCStatus != models.KYCStatusVerified {
		return nil, ErrNotVerified
	}
	if user.AccountStatus != models.AccountStatusActive {
		return nil, ErrAccountNotActive
	}

	// Reserve first: a concurrent second request for the same balance fails
	// here instead of overdrawing later
	reservation, err := s.ledger.Reserve(userID, amount)
	if err != nil {
		return nil, err
	}

	request := models.WithdrawalRequest{
		UserID:        userID,
		Amount:        amount,
		PayoutMethod:  payoutMethod,
		Status:        models.WithdrawalStatusPending,
		ReservationID: reservation.ID,
	}
	if err := s.db.Create(&request).Error; err != nil {
		if relErr := s.ledger.ReleaseReservation(reservation.ID); relErr != nil {
			log.Error().Err(relErr).Str("reservation_id", reservation.ID.String()).Msg("failed to release orphaned reservation")
		}
		return nil, fmt.Errorf("creating withdrawal request: %w", err)
	}
	return &request, nil
}

// AdminApprove moves a pending request to approved and enqueues the payout.
// The transfer ID is derived from the request ID so a retried payout reuses
// the same gateway idempotency key.
func (s *Service) AdminApprove(requestID uuid.UUID) error {
	var request models.WithdrawalRequest
	if err := s.db.First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("finding request: %w", err)
	}

	now := time.Now()
	result := s.db.Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", requestID, models.WithdrawalStatusPending).
		Updates(map[string]interface{}{
			"status":      models.WithdrawalStatusApproved,
			"transfer_id": utils.TransferReference(requestID),
			"approved_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("approving request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInvalidState
	}

	job, err := queue.NewJob(queue.JobTypeProcessPayout, PayoutPayload{RequestID: requestID})
	if err != nil {
		return fmt.Errorf("building payout job: %w", err)
	}
	if err := s.queue.Enqueue(job); err != nil {
		// The request stays approved; the stale-payout sweep re-enqueues it
		log.Error().Err(err).Str("request_id", requestID.String()).Msg("failed to enqueue payout job")
	}
	return nil
}

// RequeueStale re-enqueues payout work for approved or processing requests
// that have not progressed within olderThan. The queue delivers at most once,
// so a worker crash loses the job; payout initiation and status checks are
// idempotent, making a duplicate job harmless.
func (s *Service) RequeueStale(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	inFlight := []models.WithdrawalStatus{models.WithdrawalStatusApproved, models.WithdrawalStatusProcessing}

	var requests []models.WithdrawalRequest
	if err := s.db.Where("status IN ? AND updated_at < ?", inFlight, cutoff).
		Limit(100).Find(&requests).Error; err != nil {
		return fmt.Errorf("finding stale requests: %w", err)
	}

	for i := range requests {
		request := &requests[i]

		jobType := queue.JobTypeProcessPayout
		if request.Status == models.WithdrawalStatusProcessing {
			jobType = queue.JobTypeCheckPayoutStatus
		}
		job, err := queue.NewJob(jobType, PayoutPayload{RequestID: request.ID})
		if err != nil {
			return fmt.Errorf("building requeue job: %w", err)
		}
		if err := s.queue.Enqueue(job); err != nil {
			log.Error().Err(err).Str("request_id", request.ID.String()).Msg("failed to re-enqueue stale payout")
			continue
		}

		// Touch the row so the next sweep skips it while the job is in flight
		if err := s.db.Model(request).Update("updated_at", time.Now()).Error; err != nil {
			log.Error().Err(err).Str("request_id", request.ID.String()).Msg("failed to touch stale request")
		}
		log.Info().Str("request_id", request.ID.String()).Str("job", string(jobType)).Msg("re-enqueued stale withdrawal")
	}
	return nil
}

// AdminReject declines a pending request and releases the reserved funds.
// The release runs before the status flip so a retry after a partial failure
// always reaches it; releasing twice is a no-op.
func (s *Service) AdminReject(requestID uuid.UUID, reason string) error {
	var request models.WithdrawalRequest
	if err := s.db.First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("finding request: %w", err)
	}

	switch request.Status {
	case models.WithdrawalStatusPending:
	case models.WithdrawalStatusRejected:
		// An earlier attempt may have flipped the status without releasing
		return s.ledger.ReleaseReservation(request.ReservationID)
	default:
		return ErrInvalidState
	}

	if err := s.ledger.ReleaseReservation(request.ReservationID); err != nil {
		return fmt.Errorf("releasing reservation: %w", err)
	}

	result := s.db.Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", requestID, models.WithdrawalStatusPending).
		Updates(map[string]interface{}{
			"status":         models.WithdrawalStatusRejected,
			"failure_reason": reason,
		})
	if result.Error != nil {
		return fmt.Errorf("rejecting request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInvalidState
	}
	return nil
}

// InitiatePayout registers the beneficiary and starts the gateway transfer
// for an approved request. Safe to retry: the beneficiary registration and
// the transfer both use caller-supplied idempotency keys.
func (s *Service) InitiatePayout(ctx context.Context, requestID uuid.UUID) error {
	var request models.WithdrawalRequest
	if err := s.db.First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("finding request: %w", err)
	}

	switch request.Status {
	case models.WithdrawalStatusApproved:
	case models.WithdrawalStatusProcessing:
		// A previous attempt may have sent the transfer before crashing;
		// re-sending with the same transfer ID is safe
	default:
		return ErrInvalidState
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", request.UserID).Error; err != nil {
		return fmt.Errorf("finding user: %w", err)
	}

	if err := s.gw.CreateBeneficiary(ctx, s.beneficiaryFrom(&user, &request)); err != nil {
		return fmt.Errorf("registering beneficiary: %w", err)
	}

	status, err := s.gw.InitiatePayout(ctx, gateway.PayoutRequest{
		BeneID:     beneficiaryID(request.UserID),
		Amount:     request.Amount,
		TransferID: request.TransferID,
		Remarks:    "TaskRupee withdrawal",
	})
	if err != nil {
		return fmt.Errorf("initiating payout: %w", err)
	}

	if err := s.db.Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", requestID, models.WithdrawalStatusApproved).
		Update("status", models.WithdrawalStatusProcessing).Error; err != nil {
		return fmt.Errorf("marking request processing: %w", err)
	}

	switch status {
	case gateway.TransferStatusSuccess:
		return s.HandlePayoutResult(requestID, true, "")
	case gateway.TransferStatusFailed:
		return s.HandlePayoutResult(requestID, false, "transfer rejected by gateway")
	}
	return nil
}

// CheckPayout polls the gateway for an in-flight transfer and settles the
// request when the transfer has reached a terminal state. Returns
// ErrTransferPending while the gateway has not settled.
func (s *Service) CheckPayout(ctx context.Context, requestID uuid.UUID) error {
	var request models.WithdrawalRequest
	if err := s.db.First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("finding request: %w", err)
	}

	// Already settled by an earlier check or a duplicate job
	if request.Status == models.WithdrawalStatusCompleted || request.Status == models.WithdrawalStatusFailed {
		return nil
	}
	if request.Status != models.WithdrawalStatusProcessing {
		return ErrInvalidState
	}

	status, err := s.gw.GetTransferStatus(ctx, request.TransferID)
	if err != nil {
		return fmt.Errorf("checking transfer status: %w", err)
	}

	switch status {
	case gateway.TransferStatusSuccess:
		return s.HandlePayoutResult(requestID, true, "")
	case gateway.TransferStatusFailed:
		return s.HandlePayoutResult(requestID, false, "transfer failed at gateway")
	default:
		return ErrTransferPending
	}
}

// HandlePayoutResult settles a request after the gateway reports a terminal
// transfer status. Idempotent: duplicate reports of the same outcome are
// no-ops, and the ledger operations themselves dedupe on the reservation.
func (s *Service) HandlePayoutResult(requestID uuid.UUID, success bool, reason string) error {
	var request models.WithdrawalRequest
	if err := s.db.First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("finding request: %w", err)
	}

	if request.Status == models.WithdrawalStatusCompleted || request.Status == models.WithdrawalStatusFailed {
		return nil
	}

	now := time.Now()
	if success {
		// Consume first. If the status update below fails the consume is
		// already durable and a retry lands in the idempotent path above.
		if _, err := s.ledger.ConsumeReservation(request.ReservationID); err != nil {
			return fmt.Errorf("consuming reservation: %w", err)
		}
		if err := s.db.Model(&request).Updates(map[string]interface{}{
			"status":       models.WithdrawalStatusCompleted,
			"completed_at": now,
		}).Error; err != nil {
			return fmt.Errorf("marking request completed: %w", err)
		}
		log.Info().Str("request_id", requestID.String()).Int64("amount", request.Amount).Msg("withdrawal completed")
		return nil
	}

	if err := s.ledger.ReleaseReservation(request.ReservationID); err != nil {
		return fmt.Errorf("releasing reservation: %w", err)
	}
	if err := s.db.Model(&request).Updates(map[string]interface{}{
		"status":         models.WithdrawalStatusFailed,
		"failure_reason": reason,
		"failed_at":      now,
	}).Error; err != nil {
		return fmt.Errorf("marking request failed: %w", err)
	}
	log.Warn().Str("request_id", requestID.String()).Str("reason", reason).Msg("withdrawal failed, funds returned")
	return nil
}

// Get returns a single withdrawal request
func (s *Service) Get(requestID uuid.UUID) (*models.WithdrawalRequest, error) {
	var request models.WithdrawalRequest
	if err := s.db.First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &request, nil
}

// List returns a page of a user's withdrawal requests, newest first
func (s *Service) List(userID uuid.UUID, page, pageSize int) ([]models.WithdrawalRequest, int64, error) {
	var requests []models.WithdrawalRequest
	var total int64

	if err := s.db.Model(&models.WithdrawalRequest{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting requests: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&requests).Error; err != nil {
		return nil, 0, fmt.Errorf("finding requests: %w", err)
	}
	return requests, total, nil
}

// Pending returns all requests awaiting admin review, oldest first
func (s *Service) Pending() ([]models.WithdrawalRequest, error) {
	var requests []models.WithdrawalRequest
	err := s.db.Where("status = ?", models.WithdrawalStatusPending).Order("created_at ASC").Find(&requests).Error
	return requests, err
}

func (s *Service) beneficiaryFrom(user *models.User, request *models.WithdrawalRequest) gateway.BeneficiaryRequest {
	phone := ""
	if user.PhoneNumber != nil {
		phone = *user.PhoneNumber
	}
	req := gateway.BeneficiaryRequest{
		BeneID: beneficiaryID(user.ID),
		Name:   user.FirstName + " " + user.LastName,
		Email:  user.Email,
		Phone:  phone,
	}
	if v, ok := request.PayoutMethod["upi_id"].(string); ok {
		req.UPIID = v
	}
	if v, ok := request.PayoutMethod["bank_account"].(string); ok {
		req.BankAccount = v
	}
	if v, ok := request.PayoutMethod["ifsc"].(string); ok {
		req.IFSC = v
	}
	return req
}

// beneficiaryID is stable per user so repeat withdrawals reuse the
// registered beneficiary
func beneficiaryID(userID uuid.UUID) string {
	return "BENE-" + strings.ReplaceAll(userID.String(), "-", "")[:16]
}
