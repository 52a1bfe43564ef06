package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/taskrupee/backend/internal/config"
	"github.com/taskrupee/backend/internal/handlers"
	"github.com/taskrupee/backend/internal/middleware"
)

// Handlers bundles everything the router mounts
type Handlers struct {
	Auth       *handlers.AuthHandler
	KYC        *handlers.KYCHandler
	Account    *handlers.AccountHandler
	Withdrawal *handlers.WithdrawalHandler
	Wallet     *handlers.WalletHandler
	Task       *handlers.TaskHandler
	Webhook    *handlers.WebhookHandler
}

// Setup builds the gin engine with all routes mounted
func Setup(cfg *config.Config, h Handlers) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
	}))

	limiter := middleware.NewRateLimiter(rate.Limit(10), 30)
	router.Use(limiter.Middleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/signup", h.Auth.Signup)
		auth.POST("/login", h.Auth.Login)
	}

	// Gateway-facing, authenticated by signature instead of JWT
	v1.POST("/payments/webhook", h.Webhook.HandlePayment)

	authed := v1.Group("")
	authed.Use(middleware.Auth(cfg.JWT.Secret))
	{
		kyc := authed.Group("/kyc")
		{
			kyc.POST("/documents", h.KYC.SubmitDocuments)
			kyc.POST("/payment", h.KYC.InitiatePayment)
			kyc.GET("/payment/:orderID", h.KYC.PaymentStatus)
			kyc.GET("/status", h.KYC.Status)
		}

		account := authed.Group("/account")
		{
			account.POST("/reactivation", h.Account.InitiateReactivation)
			account.GET("/reactivation/:orderID", h.Account.ReactivationStatus)
		}

		wallet := authed.Group("/wallet")
		{
			wallet.GET("/balance", h.Wallet.Balance)
			wallet.GET("/entries", h.Wallet.Entries)
			wallet.GET("/referrals", h.Wallet.Referrals)
		}

		withdrawals := authed.Group("/withdrawals")
		{
			withdrawals.POST("", h.Withdrawal.Create)
			withdrawals.GET("", h.Withdrawal.List)
		}

		admin := authed.Group("/admin")
		admin.Use(middleware.AdminOnly())
		{
			admin.GET("/kyc/pending", h.KYC.PendingReview)
			admin.POST("/kyc/:userID/approve", h.KYC.AdminApprove)
			admin.POST("/kyc/:userID/reject", h.KYC.AdminReject)

			admin.POST("/users/:userID/suspend", h.Account.AdminSuspend)

			admin.GET("/withdrawals/pending", h.Withdrawal.Pending)
			admin.POST("/withdrawals/:requestID/approve", h.Withdrawal.AdminApprove)
			admin.POST("/withdrawals/:requestID/reject", h.Withdrawal.AdminReject)

			admin.POST("/tasks/credit", h.Task.AdminCredit)
		}
	}

	return router
}
