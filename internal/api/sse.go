package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// handleEvents streams binding state changes as server-sent events. The
// current state is sent immediately so late subscribers do not wait for
// the next change.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "STREAMING_UNSUPPORTED", "Streaming is not supported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	events, cancel := s.binding.Subscribe()
	defer cancel()

	writeEvent := func(state interface{}) bool {
		data, err := json.Marshal(state)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !writeEvent(s.binding.State()) {
		return
	}

	for {
		select {
		case event, open := <-events:
			if !open {
				return
			}
			if !writeEvent(event.State) {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
