package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fornalha/pizzaria-orders/internal/hub"
	"github.com/fornalha/pizzaria-orders/internal/metrics"
)

// EventsHandler serves the long-lived staff event stream: one
// newline-delimited JSON frame per domain event plus periodic pings.
// There is no backfill; a reconnecting client re-fetches state through
// the order query endpoints.
type EventsHandler struct {
	Hub     *hub.Hub
	Metrics *metrics.Metrics
	Log     *slog.Logger
}

func (h *EventsHandler) Register(r chi.Router) {
	r.Get("/events", h.stream)
}

func (h *EventsHandler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	subID := r.URL.Query().Get("subscriber_id")
	if subID == "" {
		subID = uuid.NewString()
	}

	ch, cancel := h.Hub.Subscribe(subID)
	defer cancel()
	h.Metrics.Subscribers.Inc()
	defer h.Metrics.Subscribers.Dec()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.Log.Info("event stream opened", "subscriber_id", subID)
	defer h.Log.Info("event stream closed", "subscriber_id", subID)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			// Client went away; deregister promptly instead of waiting
			// for the next publish or ping to notice.
			return
		case frame, ok := <-ch:
			if !ok {
				// Hub dropped us (stalled write or replaced id).
				return
			}
			// The frame slice is shared across subscribers; never
			// append to it in place.
			if _, err := w.Write(frame); err != nil {
				return
			}
			if _, err := w.Write([]byte{'\n'}); err != nil {
				return
			}
			flusher.Flush()
			if ev, isDomain := eventType(frame); isDomain {
				h.Metrics.EventsPublished.WithLabelValues(ev).Inc()
			}
		}
	}
}

// eventType peeks at the frame's type, filtering out ping frames.
func eventType(frame []byte) (string, bool) {
	var t struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &t); err != nil || t.Type == "" || t.Type == "ping" {
		return "", false
	}
	return t.Type, true
}
