// Package client consumes the relay's event stream and keeps a chat
// transcript up to date as answers arrive.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/planoeducation/planoeducation/internal/domain"
)

// ChatPath is the relay endpoint.
const ChatPath = "/api/getChat"

// maxErrorBody bounds how much of a failed response is kept.
const maxErrorBody = 64 << 10

// StatusError is returned when the relay answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("relay returned status %d: %s", e.StatusCode, e.Body)
}

// Client is an HTTP client for the chat relay.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a relay client. A nil httpClient gets one without a timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// OpenStream posts turns to the relay and returns the event stream body.
// The caller must close it.
func (c *Client) OpenStream(ctx context.Context, turns []domain.ChatTurn) (io.ReadCloser, error) {
	body, err := json.Marshal(domain.ChatRequest{Messages: turns})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ChatPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	return resp.Body, nil
}
