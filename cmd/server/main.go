package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/taskrupee/backend/internal/config"
	"github.com/taskrupee/backend/internal/database"
	"github.com/taskrupee/backend/internal/handlers"
	"github.com/taskrupee/backend/internal/jobs"
	"github.com/taskrupee/backend/internal/logger"
	"github.com/taskrupee/backend/internal/queue"
	"github.com/taskrupee/backend/internal/routes"
	"github.com/taskrupee/backend/internal/services/account"
	"github.com/taskrupee/backend/internal/services/gateway/cashfree"
	"github.com/taskrupee/backend/internal/services/kyc"
	"github.com/taskrupee/backend/internal/services/ledger"
	"github.com/taskrupee/backend/internal/services/payment"
	"github.com/taskrupee/backend/internal/services/referral"
	"github.com/taskrupee/backend/internal/services/withdrawal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Init("taskrupee-api", cfg.Debug)

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	jobQueue := queue.NewRedisQueue(redisClient)
	worker := queue.NewWorker(jobQueue, 4)

	gw := cashfree.NewProvider(cfg.Gateway)

	ledgerSvc := ledger.NewService(db)
	referralSvc := referral.NewService(db, ledgerSvc, cfg)
	notifier := queue.NewReferralNotifier(jobQueue)
	kycSvc := kyc.NewService(db, gw, cfg, kyc.PolicyFromName(cfg.Platform.KYCVerdictPolicy), notifier)
	accountSvc := account.NewService(db, gw, cfg)
	withdrawalSvc := withdrawal.NewService(db, gw, ledgerSvc, jobQueue, cfg)
	reconciler := payment.NewReconciler(db, gw, kycSvc, accountSvc, cfg)

	jobs.RegisterHandlers(worker, withdrawalSvc, referralSvc, jobQueue)
	worker.Start()

	scheduler := jobs.StartScheduler(reconciler, withdrawalSvc)

	router := routes.Setup(cfg, routes.Handlers{
		Auth:       handlers.NewAuthHandler(db, referralSvc, cfg),
		KYC:        handlers.NewKYCHandler(kycSvc, reconciler),
		Account:    handlers.NewAccountHandler(accountSvc, reconciler),
		Withdrawal: handlers.NewWithdrawalHandler(withdrawalSvc),
		Wallet:     handlers.NewWalletHandler(ledgerSvc, referralSvc),
		Task:       handlers.NewTaskHandler(ledgerSvc, cfg),
		Webhook:    handlers.NewWebhookHandler(gw, reconciler),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	scheduler.Stop()
	worker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	if err := redisClient.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close redis client")
	}
	log.Info().Msg("server stopped")
}
