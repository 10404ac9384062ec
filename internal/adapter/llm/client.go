package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/planoeducation/planoeducation/internal/config"
)

// CompletionsPath is the chat completions endpoint relative to the provider URL.
const CompletionsPath = "/v1/chat/completions"

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 64 << 10

// Client is the upstream completion provider client.
type Client struct {
	baseURL    string
	creds      config.Credentials
	httpClient *http.Client
}

// NewClient creates a new provider client. A zero timeout leaves the
// deadline to the request context.
func NewClient(baseURL string, creds config.Credentials, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		creds:   creds,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// OpenChatCompletionStream sends a streaming chat completion request. The
// returned stream must be closed by the caller.
func (c *Client) OpenChatCompletionStream(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionStream, error) {
	req.Stream = true

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+CompletionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			statusErr.API = errResp.Error
		}
		return nil, statusErr
	}

	return NewChatCompletionStream(resp.Body), nil
}

// setHeaders sets common request headers. Both auth headers are always
// sent; an empty key yields a bare "Bearer " value.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.creds.ProviderKey)
	req.Header.Set("Helicone-Auth", "Bearer "+c.creds.GatewayKey)
}
