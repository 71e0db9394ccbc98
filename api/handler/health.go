package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/sitetasks/api/transport"
	"github.com/fastygo/sitetasks/internal/infrastructure/monitor"
	"github.com/fastygo/sitetasks/pkg/httpcontext"
)

// HealthSource is satisfied by *monitor.Monitor.
type HealthSource interface {
	GetStatus() monitor.Status
	IsOnline() bool
}

type HealthHandler struct {
	baseHandler
	monitor HealthSource
}

func NewHealthHandler(mon HealthSource, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
	}
}

// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	payload := map[string]interface{}{
		"timestamp":  time.Now().UTC(),
		"last_check": status.LastCheck,
		"services":   status.Services,
		"buffer": map[string]interface{}{
			"online": status.Buffer,
			"size":   status.BufferSize,
		},
	}

	if h.monitor.IsOnline() {
		h.respondSuccess(ctx, http.StatusOK, payload)
		return
	}
	h.respondJSON(ctx, http.StatusServiceUnavailable, transport.NewError("DEGRADED", "dependencies unhealthy", payload))
}
