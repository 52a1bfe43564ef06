package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/taskrupee/backend/internal/middleware"
	"github.com/taskrupee/backend/internal/services/account"
	"github.com/taskrupee/backend/internal/services/payment"
)

// AccountHandler handles suspension and reactivation endpoints
type AccountHandler struct {
	account    *account.Service
	reconciler *payment.Reconciler
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountSvc *account.Service, reconciler *payment.Reconciler) *AccountHandler {
	return &AccountHandler{account: accountSvc, reconciler: reconciler}
}

// InitiateReactivation creates the reactivation fee order for a suspended user
func (h *AccountHandler) InitiateReactivation(c *gin.Context) {
	order, err := h.account.InitiateReactivation(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// ReactivationStatus re-verifies the reactivation order with the gateway and
// returns its settled state. Only the order's owner can poll it.
func (h *AccountHandler) ReactivationStatus(c *gin.Context) {
	order, err := h.reconciler.VerifyAndSettle(c.Request.Context(), c.Param("orderID"), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type suspendRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// AdminSuspend freezes task earning for a user
func (h *AccountHandler) AdminSuspend(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req suspendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.account.Suspend(userID, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "suspended"})
}
