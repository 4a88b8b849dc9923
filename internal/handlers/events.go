package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"medallion-storefront/internal/services"
)

const heartbeatInterval = 25 * time.Second

// EventsHandler streams change notifications to browsers as server-sent
// events.
type EventsHandler struct {
	notifier  services.Notifier
	heartbeat time.Duration
	log       zerolog.Logger
}

func NewEventsHandler(notifier services.Notifier, log zerolog.Logger) *EventsHandler {
	return &EventsHandler{notifier: notifier, heartbeat: heartbeatInterval, log: log}
}

// Stream handles GET /api/events?topic=fundraisers,settings
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	topics := strings.Split(r.URL.Query().Get("topic"), ",")
	for _, topic := range topics {
		if !services.ValidTopic(topic) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown topic %q", topic))
			return
		}
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	merged := make(chan services.Notification)
	for _, topic := range topics {
		ch, err := h.notifier.Subscribe(ctx, topic)
		if err != nil {
			writeServiceError(w, r, h.log, err)
			return
		}
		go func(ch <-chan services.Notification) {
			for note := range ch {
				select {
				case merged <- note:
				case <-ctx.Done():
					return
				}
			}
		}(ch)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case note := <-merged:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", note.Topic, note.Payload)
			flusher.Flush()
		}
	}
}
