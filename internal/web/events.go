package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"themed-storefront/internal/theme"
)

type themeEvent struct {
	Previous theme.ID     `json:"previous"`
	Current  theme.ID     `json:"current"`
	Config   theme.Config `json:"config"`
}

// themeEvents streams one "theme" event on connect and one per change.
func (h *Handler) themeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "STREAM_UNAVAILABLE", "streaming is not available")
		return
	}

	// Holds only the latest change; a slow client skips intermediate themes.
	updates := make(chan theme.Change, 1)
	unsubscribe := h.store.Subscribe(func(c theme.Change) {
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- c:
		default:
		}
	})
	defer unsubscribe()

	subscriber := uuid.NewString()
	log := h.log.With().Str("subscriber", subscriber).Logger()
	log.Debug().Str("event", "theme_stream_opened").Str("remote", r.RemoteAddr).Send()
	defer func() { log.Debug().Str("event", "theme_stream_closed").Send() }()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	id, cfg := h.store.Current()
	if err := writeThemeEvent(w, themeEvent{Previous: id, Current: id, Config: cfg}); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case c := <-updates:
			if err := writeThemeEvent(w, themeEvent{Previous: c.Previous, Current: c.Current, Config: c.Config}); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeThemeEvent(w http.ResponseWriter, ev themeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: theme\ndata: %s\n\n", payload)
	return err
}
