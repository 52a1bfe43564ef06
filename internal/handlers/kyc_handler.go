package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/taskrupee/backend/internal/middleware"
	"github.com/taskrupee/backend/internal/services/kyc"
	"github.com/taskrupee/backend/internal/services/payment"
)

// KYCHandler handles identity-verification endpoints
type KYCHandler struct {
	kyc        *kyc.Service
	reconciler *payment.Reconciler
}

// NewKYCHandler creates a new KYC handler
func NewKYCHandler(kycSvc *kyc.Service, reconciler *payment.Reconciler) *KYCHandler {
	return &KYCHandler{kyc: kycSvc, reconciler: reconciler}
}

type submitDocumentsRequest struct {
	DocumentRefs []string `json:"document_refs" binding:"required"`
}

// SubmitDocuments records a verification attempt
func (h *KYCHandler) SubmitDocuments(c *gin.Context) {
	var req submitDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	submission, err := h.kyc.SubmitDocuments(middleware.UserID(c), req.DocumentRefs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, submission)
}

// InitiatePayment creates the verification fee order and returns the payment
// session reference for the client to complete checkout
func (h *KYCHandler) InitiatePayment(c *gin.Context) {
	order, err := h.kyc.InitiatePayment(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// PaymentStatus re-verifies the fee order with the gateway and returns its
// settled state. Called from the checkout return page; the gateway is the
// only source of truth here, and only the order's owner can poll it.
func (h *KYCHandler) PaymentStatus(c *gin.Context) {
	order, err := h.reconciler.VerifyAndSettle(c.Request.Context(), c.Param("orderID"), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Status returns the caller's KYC status and latest submission
func (h *KYCHandler) Status(c *gin.Context) {
	status, submission, err := h.kyc.Status(middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kyc_status": status, "submission": submission})
}

// PendingReview lists submissions awaiting a manual verdict
func (h *KYCHandler) PendingReview(c *gin.Context) {
	submissions, err := h.kyc.PendingReview()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": submissions})
}

// AdminApprove verifies a user awaiting manual review
func (h *KYCHandler) AdminApprove(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	if err := h.kyc.AdminApprove(userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "verified"})
}

type rejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// AdminReject rejects a user's verification attempt
func (h *KYCHandler) AdminReject(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.kyc.AdminReject(userID, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}
