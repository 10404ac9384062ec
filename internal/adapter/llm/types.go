package llm

import (
	"fmt"

	"github.com/planoeducation/planoeducation/internal/domain"
)

// ChatCompletionRequest represents the OpenAI-compatible chat completion request.
type ChatCompletionRequest struct {
	Model       string            `json:"model"`
	Messages    []domain.ChatTurn `json:"messages"`
	Stream      bool              `json:"stream"`
	MaxTokens   *int              `json:"max_tokens,omitempty"`
	Temperature *float64          `json:"temperature,omitempty"`
}

// ChatMessage represents a (partial) chat message inside a choice.
type ChatMessage struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content"`
}

// Choice represents a completion choice.
type Choice struct {
	Index        int          `json:"index"`
	Delta        *ChatMessage `json:"delta,omitempty"`
	Text         string       `json:"text,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

// StreamChunk represents a single SSE chunk from the provider stream.
type StreamChunk struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

// Delta is the incremental text of one streamed step.
type Delta struct {
	Text         string
	FinishReason string
	Model        string
}

// deltaFromChunk extracts the text of the first choice; absent text is "".
func deltaFromChunk(chunk *StreamChunk) Delta {
	d := Delta{Model: chunk.Model}
	if len(chunk.Choices) == 0 {
		return d
	}
	choice := chunk.Choices[0]
	if choice.Delta != nil {
		d.Text = choice.Delta.Content
	} else {
		d.Text = choice.Text
	}
	d.FinishReason = choice.FinishReason
	return d
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// APIError represents the error details.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code,omitempty"`
}

// StatusError is returned when the provider answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
	API        *APIError
}

func (e *StatusError) Error() string {
	if e.API != nil && e.API.Message != "" {
		return fmt.Sprintf("LLM API error [%d]: %s (type: %s)", e.StatusCode, e.API.Message, e.API.Type)
	}
	return fmt.Sprintf("LLM API error [%d]: %s", e.StatusCode, e.Body)
}
