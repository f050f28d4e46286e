package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"sinalbot/internal/executor"
	"sinalbot/internal/gateway/exchange"
	"sinalbot/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
)

const maxSignalBody = 64 << 10

type handlers struct {
	cfg ServerConfig
}

// handleSignal validates the payload and hands it to the executor on
// its own goroutine. The webhook answers immediately; the outcome shows
// up in the logs, the metrics and the audit trail.
func (h *handlers) handleSignal(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSignalBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	if !gjson.ValidBytes(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := compiledSignalSchema.Validate(decoded); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sig := executor.Signal{
		Symbol:    gjson.GetBytes(body, "symbol").String(),
		Side:      exchange.PositionSide(gjson.GetBytes(body, "side").String()),
		OrderType: exchange.OrderType(gjson.GetBytes(body, "order_type").String()),
		Timeframe: gjson.GetBytes(body, "timeframe").String(),
	}
	if h.cfg.SymbolAllowed != nil && !h.cfg.SymbolAllowed(sig.Symbol) {
		c.JSON(http.StatusForbidden, gin.H{"error": "symbol not allowed"})
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), signalTimeout)
		defer cancel()
		outcome := h.cfg.Signals.HandleSignal(ctx, sig)
		logger.Debugf("signal %s %s %s outcome=%s", sig.Symbol, sig.Side, sig.Timeframe, outcome)
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"status": "accepted",
		"signal": gin.H{
			"symbol":    strings.ToUpper(sig.Symbol),
			"side":      string(sig.Side),
			"timeframe": sig.Timeframe,
		},
	})
}

func (h *handlers) handlePositions(c *gin.Context) {
	if h.cfg.Positions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "position state not available"})
		return
	}
	type positionView struct {
		Symbol       string  `json:"symbol"`
		Side         string  `json:"side"`
		Quantity     float64 `json:"quantity"`
		EntryPrice   float64 `json:"entry_price"`
		TrailingSent bool    `json:"trailing_sent"`
	}
	type pendingView struct {
		Symbol    string  `json:"symbol"`
		Side      string  `json:"side"`
		Timeframe string  `json:"timeframe"`
		OrderID   int64   `json:"order_id"`
		Price     float64 `json:"price"`
	}

	positions := make([]positionView, 0)
	for _, p := range h.cfg.Positions.Snapshot().Positions() {
		positions = append(positions, positionView{
			Symbol:       p.Symbol,
			Side:         string(p.Side),
			Quantity:     p.Quantity,
			EntryPrice:   p.EntryPrice,
			TrailingSent: p.TrailingSent,
		})
	}
	pending := make([]pendingView, 0)
	for _, p := range h.cfg.Positions.PendingLimits() {
		pending = append(pending, pendingView{
			Symbol:    p.Symbol,
			Side:      string(p.Side),
			Timeframe: p.Timeframe,
			OrderID:   p.OrderID,
			Price:     p.Price,
		})
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions, "pending_limits": pending})
}

func (h *handlers) handleEvents(c *gin.Context) {
	if h.cfg.Events == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit trail not enabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	events, err := h.cfg.Events.ListRecent(c.Request.Context(), c.Query("symbol"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
