package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/therapylink/clinic-scheduling/internal/events"
	"github.com/therapylink/clinic-scheduling/internal/observability/metrics"
)

// StreamHandler serves the long-lived event stream dashboards subscribe to.
// Each connection gets its own bus subscription; events are written as SSE
// data lines, and a comment heartbeat keeps dead connections detectable. A
// client that falls behind its buffer misses events rather than slowing
// anyone else down.
type StreamHandler struct {
	bus       *events.Bus
	heartbeat time.Duration
	log       *zap.Logger
	metrics   *metrics.Metrics
}

func NewStreamHandler(bus *events.Bus, heartbeat time.Duration, log *zap.Logger, m *metrics.Metrics) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &StreamHandler{bus: bus, heartbeat: heartbeat, log: log, metrics: m}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.bus.Subscribe()
	defer sub.Close()

	if h.metrics != nil {
		h.metrics.StreamSubscribers.Inc()
		defer h.metrics.StreamSubscribers.Dec()
	}
	h.log.Debug("stream subscriber connected", zap.String("request_id", GetRequestID(r.Context())))

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Debug("stream subscriber disconnected", zap.String("request_id", GetRequestID(r.Context())))
			return

		case ev, open := <-sub.C:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.log.Warn("failed to marshal event", zap.String("type", string(ev.Type)), zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			// Heartbeat doubles as the bound on how quickly a dead
			// connection is noticed and the subscription released.
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
