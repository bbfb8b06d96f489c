package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/claimtriage/roadside/backend/internal/domain/entities"
	"github.com/claimtriage/roadside/backend/internal/domain/providers"
)

// keepaliveInterval paces the comment lines that keep idle SSE connections
// open through proxies.
const keepaliveInterval = 30 * time.Second

// LogStreamHandler streams per-claim log entries over Server-Sent Events.
type LogStreamHandler struct {
	logBus providers.LogBus
}

// NewLogStreamHandler creates a new log stream handler.
func NewLogStreamHandler(logBus providers.LogBus) *LogStreamHandler {
	return &LogStreamHandler{logBus: logBus}
}

// StreamClaimLogs handles GET /api/claims/{id}/logs/stream. The stream first
// replays the claim's full history, then forwards live entries until the
// sentinel arrives or the client disconnects. Reconnecting replays history
// again.
func (h *LogStreamHandler) StreamClaimLogs(w http.ResponseWriter, r *http.Request) {
	claimID := r.PathValue("id")
	if claimID == "" {
		respondWithError(w, http.StatusBadRequest, "claim ID is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Set headers for SSE
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	entries, err := h.logBus.Subscribe(r.Context(), claimID)
	if err != nil {
		log.Error().Err(err).Str("claim_id", claimID).Msg("log stream subscribe failed")
		respondWithError(w, http.StatusInternalServerError, "failed to subscribe to claim logs")
		return
	}

	flusher.Flush()

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug().Str("claim_id", claimID).Msg("log stream client disconnected")
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case entry, open := <-entries:
			if !open {
				return
			}
			h.sendEntry(w, entry)
			flusher.Flush()
			if entry.IsSentinel() {
				return
			}
		}
	}
}

func (h *LogStreamHandler) sendEntry(w http.ResponseWriter, entry entities.ClaimLogEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("claim_id", entry.ClaimID).Msg("failed to encode log entry")
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
