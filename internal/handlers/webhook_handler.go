package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/taskrupee/backend/internal/services/gateway"
	"github.com/taskrupee/backend/internal/services/payment"
)

// WebhookHandler receives gateway payment notifications
type WebhookHandler struct {
	gw         gateway.Gateway
	reconciler *payment.Reconciler
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(gw gateway.Gateway, reconciler *payment.Reconciler) *WebhookHandler {
	return &WebhookHandler{gw: gw, reconciler: reconciler}
}

// HandlePayment processes a gateway webhook. The signature is verified before
// any field is read; an unverifiable payload changes no state and is logged.
func (h *WebhookHandler) HandlePayment(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	signature := c.GetHeader("x-webhook-signature")
	event, err := h.gw.ParseWebhook(body, signature)
	if err != nil {
		if errors.Is(err, gateway.ErrBadSignature) {
			log.Warn().Str("remote", c.ClientIP()).Msg("webhook signature verification failed")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := h.reconciler.HandleEvent(event); err != nil {
		// Non-2xx makes the gateway redeliver; settlement is idempotent so a
		// retry is safe
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
