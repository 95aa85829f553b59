package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/logging"
)

const feedHeartbeat = 25 * time.Second

// FeedHandler streams full poll snapshots as server-sent events.
type FeedHandler struct {
	store ports.PollStore
	log   logging.Logger
}

func NewFeedHandler(store ports.PollStore, log logging.Logger) *FeedHandler {
	return &FeedHandler{store: store, log: log}
}

func (h *FeedHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// Only the newest snapshot matters, so a slow client skips stale ones.
	updates := make(chan []domain.Poll, 1)
	unsubscribe := h.store.Subscribe(func(polls []domain.Poll) {
		for {
			select {
			case updates <- polls:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, h.store.Snapshot()); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(feedHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case polls := <-updates:
			if err := writeEvent(w, polls); err != nil {
				h.log.Debug(r.Context(), "feed client gone", "error", err)
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, polls []domain.Poll) error {
	data, err := json.Marshal(polls)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: polls\ndata: %s\n\n", data)
	return err
}
