package entities

import "time"

// LogSeverity tags a claim log entry
type LogSeverity string

const (
	LogSeverityInfo    LogSeverity = "info"
	LogSeveritySuccess LogSeverity = "success"
	LogSeverityWarning LogSeverity = "warning"
	LogSeverityError   LogSeverity = "error"

	// LogSeverityComplete is the sentinel severity that closes a live log
	// stream once orchestration has finished for the claim.
	LogSeverityComplete LogSeverity = "complete"
)

// ClaimLogEntry is one append-only observability record for a claim. Entries
// are strictly ordered per claim by Sequence and never mutated or deleted.
type ClaimLogEntry struct {
	ClaimID   string      `json:"claim_id"`
	Sequence  int         `json:"sequence"`
	Timestamp time.Time   `json:"timestamp"`
	Type      LogSeverity `json:"type"`
	Message   string      `json:"message"`
}

// IsSentinel reports whether the entry marks the end of the stream.
func (e *ClaimLogEntry) IsSentinel() bool {
	return e.Type == LogSeverityComplete
}
