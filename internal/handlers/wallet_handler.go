package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskrupee/backend/internal/middleware"
	"github.com/taskrupee/backend/internal/services/ledger"
	"github.com/taskrupee/backend/internal/services/referral"
)

// WalletHandler exposes the ledger's read-only projections
type WalletHandler struct {
	ledger    *ledger.Service
	referrals *referral.Service
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(ledgerSvc *ledger.Service, referrals *referral.Service) *WalletHandler {
	return &WalletHandler{ledger: ledgerSvc, referrals: referrals}
}

// Balance returns the caller's available and pending balance in paise
func (h *WalletHandler) Balance(c *gin.Context) {
	balance, err := h.ledger.Balance(middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

// Entries returns a page of the caller's ledger entries
func (h *WalletHandler) Entries(c *gin.Context) {
	var q paginationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, total, err := h.ledger.Entries(middleware.UserID(c), q.Page, q.PageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": total, "page": q.Page})
}

// Referrals returns the caller's referral records
func (h *WalletHandler) Referrals(c *gin.Context) {
	records, err := h.referrals.Referrals(middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"referrals": records})
}
