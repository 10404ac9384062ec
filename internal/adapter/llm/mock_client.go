package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/planoeducation/planoeducation/internal/domain"
	"github.com/planoeducation/planoeducation/internal/sse"
)

// MockClient is a mock implementation of LLMClient for local runs and tests.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

// OpenChatCompletionStream renders a canned reply as a provider event stream,
// including the leading newline delta the real provider emits.
func (m *MockClient) OpenChatCompletionStream(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano())
	created := time.Now().Unix()
	chunks := append([]string{"\n"}, m.splitIntoChunks(m.generateMockResponse(req), 10)...)

	var buf bytes.Buffer
	for i, text := range chunks {
		finishReason := ""
		if i == len(chunks)-1 {
			finishReason = "stop"
		}
		chunk := StreamChunk{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   req.Model,
			Choices: []Choice{{
				Delta:        &ChatMessage{Role: string(domain.RoleAssistant), Content: text},
				FinishReason: finishReason,
			}},
		}
		if err := sse.WriteFrame(&buf, chunk); err != nil {
			return nil, err
		}
	}
	buf.WriteString(sse.DataPrefix + DoneSentinel + "\n\n")

	return NewChatCompletionStream(io.NopCloser(&buf)), nil
}

// generateMockResponse generates a mock response based on the request.
func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == domain.RoleUser {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}

	if lastUserMessage == "" {
		return "[MOCK] This is a mock response from the LLM client."
	}

	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100))
}

// splitIntoChunks splits a string into chunks of at most chunkSize runes.
func (m *MockClient) splitIntoChunks(s string, chunkSize int) []string {
	if len(s) == 0 {
		return []string{""}
	}

	var chunks []string
	runes := []rune(s)
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
