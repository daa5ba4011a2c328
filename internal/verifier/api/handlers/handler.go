package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/attestx/attestx-backend/internal/verifier/config"
	"github.com/attestx/attestx-backend/internal/verifier/core/tally"
	"github.com/attestx/attestx-backend/internal/verifier/core/verification"
	"github.com/attestx/attestx-backend/internal/verifier/storage"
	"github.com/attestx/attestx-backend/pkg/logging"
)

// Handler serves the verifier's HTTP operations.
type Handler struct {
	verifier *verification.Verifier
	logger   logging.Logger
}

func NewHandler(verifier *verification.Verifier, logger logging.Logger) *Handler {
	return &Handler{
		verifier: verifier,
		logger:   logger,
	}
}

// SubmitVoteRequest is one operator's result submission for a task.
type SubmitVoteRequest struct {
	Registry string `json:"registry" binding:"required"`
	TaskID   uint64 `json:"task_id"`
	Operator string `json:"operator" binding:"required"`
	Result   string `json:"result" binding:"required"`
}

func (h *Handler) SubmitVote(c *gin.Context) {
	var req SubmitVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.verifier.SubmitVote(c.Request.Context(), req.Registry, req.TaskID, req.Operator, req.Result)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicateVote):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, verification.ErrUnauthorized):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, tally.ErrInvalidResultFormat):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("vote submission failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, outcome)
}

func (h *Handler) GetTaskInfo(c *gin.Context) {
	registry, taskID, ok := taskParams(c)
	if !ok {
		return
	}

	info, err := h.verifier.TaskInfo(registry, taskID)
	if err != nil {
		h.logger.Error("task info query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if info == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	c.JSON(http.StatusOK, info)
}

func (h *Handler) GetOperatorVote(c *gin.Context) {
	registry, taskID, ok := taskParams(c)
	if !ok {
		return
	}
	operator := c.Query("operator")
	if operator == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "operator is required"})
		return
	}

	vote, err := h.verifier.OperatorVote(registry, taskID, operator)
	if err != nil {
		h.logger.Error("operator vote query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if vote == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "vote not found"})
		return
	}

	c.JSON(http.StatusOK, vote)
}

func (h *Handler) GetConfig(c *gin.Context) {
	response := gin.H{
		"tally_mode":          h.verifier.StrategyName(),
		"required_percentage": h.verifier.RequiredPercentage(),
	}
	if config.GetTallyMode() == config.ModeMedianSpread {
		response["threshold_percent"] = config.GetThresholdPercent()
		response["allowed_spread"] = config.GetAllowedSpread()
		response["slashable_spread"] = config.GetSlashableSpread()
	}
	c.JSON(http.StatusOK, response)
}

func (h *Handler) GetSlashedOperators(c *gin.Context) {
	operators, err := h.verifier.SlashedOperators()
	if err != nil {
		h.logger.Error("slashed operators query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if operators == nil {
		operators = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"operators": operators})
}

func taskParams(c *gin.Context) (string, uint64, bool) {
	registry := c.Query("registry")
	if registry == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "registry is required"})
		return "", 0, false
	}
	taskID, err := strconv.ParseUint(c.Query("task_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task_id"})
		return "", 0, false
	}
	return registry, taskID, true
}
