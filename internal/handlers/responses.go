package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/taskrupee/backend/internal/services/account"
	"github.com/taskrupee/backend/internal/services/kyc"
	"github.com/taskrupee/backend/internal/services/ledger"
	"github.com/taskrupee/backend/internal/services/referral"
	"github.com/taskrupee/backend/internal/services/withdrawal"
)

// respondError maps service errors onto HTTP statuses. Unknown errors are
// logged and returned as opaque 500s.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "insufficient balance"})
	case errors.Is(err, ledger.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
	case errors.Is(err, ledger.ErrAccountSuspended):
		c.JSON(http.StatusForbidden, gin.H{"error": "account is suspended"})
	case errors.Is(err, withdrawal.ErrBelowMinimum):
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount is below the minimum withdrawal"})
	case errors.Is(err, withdrawal.ErrNotVerified):
		c.JSON(http.StatusForbidden, gin.H{"error": "identity verification required"})
	case errors.Is(err, withdrawal.ErrAccountNotActive):
		c.JSON(http.StatusForbidden, gin.H{"error": "account is not active"})
	case errors.Is(err, kyc.ErrNoDocuments):
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one document is required"})
	case errors.Is(err, referral.ErrSelfReferral):
		c.JSON(http.StatusBadRequest, gin.H{"error": "you cannot use your own referral code"})
	case errors.Is(err, kyc.ErrInvalidState),
		errors.Is(err, account.ErrInvalidState),
		errors.Is(err, withdrawal.ErrInvalidState),
		errors.Is(err, ledger.ErrInvalidReservationState):
		c.JSON(http.StatusConflict, gin.H{"error": "operation not valid in the current state"})
	case errors.Is(err, kyc.ErrOrderNotFound),
		errors.Is(err, account.ErrOrderNotFound),
		errors.Is(err, withdrawal.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

type paginationQuery struct {
	Page     int `form:"page,default=1" binding:"min=1"`
	PageSize int `form:"page_size,default=20" binding:"min=1,max=100"`
}
