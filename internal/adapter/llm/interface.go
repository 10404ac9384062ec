// Package llm provides the client for the upstream completion provider.
package llm

import "context"

// LLMClient defines the interface for streaming completion calls.
type LLMClient interface {
	// OpenChatCompletionStream sends a streaming chat completion request and
	// returns once the provider has answered with response headers.
	OpenChatCompletionStream(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionStream, error)
}

// Ensure Client implements LLMClient interface.
var _ LLMClient = (*Client)(nil)
