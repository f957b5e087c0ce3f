package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/andresuchdata/dataset-relay/internal/cache"
	"github.com/andresuchdata/dataset-relay/internal/domain"
	"github.com/andresuchdata/dataset-relay/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Runner executes one transfer.
type Runner interface {
	Run(ctx context.Context, req domain.TransferRequest) domain.Outcome
	Defaults() domain.TransferRequest
}

type TransferHandler struct {
	runner  Runner
	history repository.TransferRepository
	cache   cache.TransferCache
}

// NewTransferHandler builds the handler. history may be nil when no database
// is configured; a nil cache becomes a no-op.
func NewTransferHandler(runner Runner, history repository.TransferRepository, c cache.TransferCache) *TransferHandler {
	if c == nil {
		c = cache.NewNoopTransferCache()
	}
	return &TransferHandler{runner: runner, history: history, cache: c}
}

type transferResponse struct {
	domain.Outcome
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func newTransferResponse(o domain.Outcome) transferResponse {
	return transferResponse{
		Outcome: o,
		Status:  o.Stage.Label(),
		Error:   o.ErrorMessage(),
	}
}

// CreateTransfer runs one transfer synchronously.
func (h *TransferHandler) CreateTransfer(c *gin.Context) {
	var req domain.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	outcome := h.runner.Run(c.Request.Context(), req)
	if !outcome.Succeeded() {
		c.JSON(http.StatusBadGateway, newTransferResponse(outcome))
		return
	}

	c.JSON(http.StatusOK, newTransferResponse(outcome))
}

// GetLatestTransfer returns the most recent run for a competition.
func (h *TransferHandler) GetLatestTransfer(c *gin.Context) {
	ctx := c.Request.Context()
	log := zerolog.Ctx(ctx)

	competition := c.DefaultQuery("competition", h.runner.Defaults().Competition)
	if competition == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "competition parameter is required"})
		return
	}

	run, ok, err := h.cache.GetLatest(ctx, competition)
	if err != nil {
		log.Warn().Err(err).Str("competition", competition).Msg("transfer cache lookup failed")
	}
	if ok {
		c.JSON(http.StatusOK, run)
		return
	}

	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no transfer recorded for " + competition})
		return
	}

	run, err = h.history.GetLatestRun(ctx, competition)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no transfer recorded for " + competition})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to load latest transfer")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load latest transfer"})
		return
	}

	if err := h.cache.SetLatest(ctx, run); err != nil {
		log.Warn().Err(err).Msg("failed to cache latest transfer")
	}
	c.JSON(http.StatusOK, run)
}

// ListTransfers returns recent runs from the history database, optionally
// filtered by ?stage=.
func (h *TransferHandler) ListTransfers(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "transfer history is disabled"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
		return
	}

	filter := repository.RunFilter{Limit: limit}
	if name := c.Query("stage"); name != "" {
		stage, ok := domain.ParseStage(name)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown stage " + strconv.Quote(name)})
			return
		}
		filter.Stage = stage
	}

	runs, err := h.history.ListRuns(c.Request.Context(), filter)
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to list transfers")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list transfers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": runs, "count": len(runs)})
}
