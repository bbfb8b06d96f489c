package entities

import "time"

// TranscriptEntry is one utterance from the post-call webhook payload. The
// message field may be truncated for long turns; original_message carries the
// full untruncated content when present.
type TranscriptEntry struct {
	Role            string  `json:"role"`
	Message         string  `json:"message"`
	OriginalMessage *string `json:"original_message,omitempty"`
}

// ConversationTranscription is the stored record for one voice-call session.
// Re-delivery for the same conversation id overwrites the transcription but
// never the claim mapping.
type ConversationTranscription struct {
	ConversationID string            `json:"conversation_id"`
	Transcription  string            `json:"transcription"`
	ReceivedAt     time.Time         `json:"received_at"`
	ClaimID        string            `json:"claim_id,omitempty"`
	EntryCount     int               `json:"transcript_entry_count"`
	RawTranscript  []TranscriptEntry `json:"raw_transcript,omitempty"`
}
