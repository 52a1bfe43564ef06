package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/taskrupee/backend/internal/middleware"
	"github.com/taskrupee/backend/internal/models"
	"github.com/taskrupee/backend/internal/services/withdrawal"
)

// WithdrawalHandler handles payout request endpoints
type WithdrawalHandler struct {
	withdrawals *withdrawal.Service
}

// NewWithdrawalHandler creates a new withdrawal handler
func NewWithdrawalHandler(withdrawals *withdrawal.Service) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals}
}

type createWithdrawalRequest struct {
	Amount       int64       `json:"amount" binding:"required,gt=0"`
	PayoutMethod models.JSON `json:"payout_method" binding:"required"`
}

// Create submits a withdrawal request, reserving the amount immediately
func (h *WithdrawalHandler) Create(c *gin.Context) {
	var req createWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.withdrawals.Request(middleware.UserID(c), req.Amount, req.PayoutMethod)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

// List returns the caller's withdrawal requests
func (h *WithdrawalHandler) List(c *gin.Context) {
	var q paginationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requests, total, err := h.withdrawals.List(middleware.UserID(c), q.Page, q.PageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": requests, "total": total, "page": q.Page})
}

// Pending lists requests awaiting admin review
func (h *WithdrawalHandler) Pending(c *gin.Context) {
	requests, err := h.withdrawals.Pending()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": requests})
}

// AdminApprove approves a pending request and queues the payout
func (h *WithdrawalHandler) AdminApprove(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("requestID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}
	if err := h.withdrawals.AdminApprove(requestID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved"})
}

// AdminReject declines a pending request, returning the funds
func (h *WithdrawalHandler) AdminReject(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("requestID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.withdrawals.AdminReject(requestID, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}
