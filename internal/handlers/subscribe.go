package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gearboxe-market/messaging/internal/middleware"
	"github.com/gearboxe-market/messaging/internal/transport"
)

const keepAliveInterval = 25 * time.Second

// Subscribe streams change signals for the authenticated user as
// server-sent events. The stream stays open until the client disconnects.
func (h *MessagingHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		transport.WriteError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()

	// Buffered so a slow write never blocks the pub/sub loop; a dropped
	// signal only costs one missed refresh.
	signals := make(chan []byte, 16)
	h.notifier.Subscribe(ctx, userID, func(payload []byte) {
		select {
		case signals <- payload:
		default:
		}
	})

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-signals:
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}
