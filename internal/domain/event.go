package domain

import "encoding/json"

// Event is an audit record attached to one relay call.
type Event struct {
	EventID   string          `json:"event_id"`
	RequestID string          `json:"request_id"`
	Ts        int64           `json:"ts"` // Unix milliseconds
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// LLMCallStartedPayload is recorded when the relay opens an upstream call.
type LLMCallStartedPayload struct {
	RequestID string `json:"request_id"`
	Model     string `json:"model"`
	Messages  int    `json:"messages"`
}

// LLMCallDonePayload is recorded when a relay call finishes, successfully or not.
type LLMCallDonePayload struct {
	RequestID    string `json:"request_id"`
	Model        string `json:"model"`
	LatencyMs    int64  `json:"latency_ms"`
	Frames       int    `json:"frames"`
	Skipped      int    `json:"skipped"`
	FinishReason string `json:"finish_reason,omitempty"`
	Error        string `json:"error,omitempty"`
}
