package jobs

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"

	"github.com/taskrupee/backend/internal/queue"
	"github.com/taskrupee/backend/internal/services/payment"
	"github.com/taskrupee/backend/internal/services/referral"
	"github.com/taskrupee/backend/internal/services/withdrawal"
)

// RegisterHandlers binds all job handlers on the worker
func RegisterHandlers(w *queue.Worker, withdrawals *withdrawal.Service, referrals *referral.Service, q queue.Enqueuer) {
	payouts := NewPayoutHandlers(withdrawals, q)
	w.RegisterHandler(queue.JobTypeProcessPayout, payouts.ProcessPayout)
	w.RegisterHandler(queue.JobTypeCheckPayoutStatus, payouts.CheckPayoutStatus)

	refs := NewReferralHandlers(referrals)
	w.RegisterHandler(queue.JobTypeReferralVerified, refs.ReferralVerified)
}

// staleWithdrawalAge is how long an approved or processing request may sit
// untouched before its payout job is assumed lost and re-enqueued
const staleWithdrawalAge = 10 * time.Minute

// StartScheduler runs the periodic sweeps: order reconciliation and lost
// payout-job recovery. Returns the scheduler so callers can stop it on
// shutdown.
func StartScheduler(reconciler *payment.Reconciler, withdrawals *withdrawal.Service) *gocron.Scheduler {
	scheduler := gocron.NewScheduler(time.UTC)

	if _, err := scheduler.Every(1).Hour().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := reconciler.Sweep(ctx); err != nil {
			log.Error().Err(err).Msg("reconciliation sweep failed")
		}
	}); err != nil {
		log.Error().Err(err).Msg("failed to schedule reconciliation sweep")
	}

	if _, err := scheduler.Every(5).Minutes().Do(func() {
		if err := withdrawals.RequeueStale(staleWithdrawalAge); err != nil {
			log.Error().Err(err).Msg("stale withdrawal sweep failed")
		}
	}); err != nil {
		log.Error().Err(err).Msg("failed to schedule stale withdrawal sweep")
	}

	scheduler.StartAsync()
	return scheduler
}
