package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/taskrupee/backend/internal/config"
	"github.com/taskrupee/backend/internal/models"
	"github.com/taskrupee/backend/internal/services/ledger"
)

// TaskHandler credits task rewards. Crediting is admin-driven: the task
// system reports completions and the ledger dedupes on the task id.
type TaskHandler struct {
	ledger   *ledger.Service
	platform config.PlatformConfig
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(ledgerSvc *ledger.Service, cfg *config.Config) *TaskHandler {
	return &TaskHandler{ledger: ledgerSvc, platform: cfg.Platform}
}

type creditTaskRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	TaskID string    `json:"task_id" binding:"required"`
	// Amount overrides the default task reward when positive
	Amount int64 `json:"amount"`
}

// AdminCredit credits a completed task. Idempotent on (user, task): replaying
// the same completion credits nothing.
func (h *TaskHandler) AdminCredit(c *gin.Context) {
	var req creditTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount := req.Amount
	if amount <= 0 {
		amount = h.platform.TaskReward
	}

	entry, err := h.ledger.Credit(req.UserID, models.LedgerKindTaskReward, req.TaskID, amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}
