package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/taskrupee/backend/internal/queue"
	"github.com/taskrupee/backend/internal/services/withdrawal"
)

const payoutCheckInterval = 30 * time.Second

// PayoutHandlers processes payout jobs for approved withdrawals
type PayoutHandlers struct {
	withdrawals *withdrawal.Service
	queue       queue.Enqueuer
}

// NewPayoutHandlers creates handlers for payout processing and polling
func NewPayoutHandlers(withdrawals *withdrawal.Service, q queue.Enqueuer) *PayoutHandlers {
	return &PayoutHandlers{withdrawals: withdrawals, queue: q}
}

// ProcessPayout initiates the gateway transfer, then schedules a status check
func (h *PayoutHandlers) ProcessPayout(ctx context.Context, job *queue.Job) error {
	var payload withdrawal.PayoutPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshaling payout payload: %w", err)
	}

	if err := h.withdrawals.InitiatePayout(ctx, payload.RequestID); err != nil {
		if errors.Is(err, withdrawal.ErrInvalidState) {
			// Already settled or rejected; nothing to do
			log.Debug().Str("request_id", payload.RequestID.String()).Msg("payout job skipped, request not payable")
			return nil
		}
		return err
	}

	return h.scheduleCheck(payload.RequestID)
}

// CheckPayoutStatus polls the transfer and re-schedules itself while pending
func (h *PayoutHandlers) CheckPayoutStatus(ctx context.Context, job *queue.Job) error {
	var payload withdrawal.PayoutPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshaling payout payload: %w", err)
	}

	err := h.withdrawals.CheckPayout(ctx, payload.RequestID)
	if errors.Is(err, withdrawal.ErrTransferPending) {
		return h.scheduleCheck(payload.RequestID)
	}
	if errors.Is(err, withdrawal.ErrInvalidState) {
		return nil
	}
	return err
}

func (h *PayoutHandlers) scheduleCheck(requestID uuid.UUID) error {
	job, err := queue.NewJob(queue.JobTypeCheckPayoutStatus, withdrawal.PayoutPayload{RequestID: requestID})
	if err != nil {
		return err
	}
	return h.queue.EnqueueIn(payoutCheckInterval, job)
}
