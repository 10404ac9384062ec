package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planoeducation/planoeducation/internal/adapter/llm"
	"github.com/planoeducation/planoeducation/internal/config"
	"github.com/planoeducation/planoeducation/internal/domain"
	"github.com/planoeducation/planoeducation/internal/policy"
	"github.com/planoeducation/planoeducation/internal/relay"
	"github.com/planoeducation/planoeducation/internal/service"
	"github.com/planoeducation/planoeducation/tests/helpers"
)

func newTestServer(t *testing.T, providerURL string, opts Options) *echo.Echo {
	t.Helper()
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy, policy.Limits{MaxMessages: 10})
	require.NoError(t, err)

	r := relay.New(llm.NewClient(providerURL, config.Credentials{}, 5*time.Second), relay.Options{Model: "llama"})
	svc := service.New(helpers.NewTestSQLiteStore(t), r, engine)

	e := echo.New()
	NewHandler(svc, opts).RegisterRoutes(e)
	return e
}

func postChat(e *echo.Echo, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/getChat", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) domain.ErrorResponse {
	t.Helper()
	var resp domain.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestGetChatRejectsInvalidMessages(t *testing.T) {
	e := newTestServer(t, "http://unused", Options{})

	tests := []struct {
		name        string
		body        string
		wantDetails bool
	}{
		{"missing messages", `{}`, false},
		{"messages not an array", `{"messages":"not-an-array"}`, false},
		{"messages null", `{"messages":null}`, false},
		{"messages object", `{"messages":{"role":"user"}}`, false},
		{"body not json", `hello`, false},
		{"body is an array", `[{"role":"user","content":"hi"}]`, false},
		{"element not a turn", `{"messages":[{"role":"user","content":42}]}`, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postChat(e, tc.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
			resp := decodeError(t, rec)
			assert.Equal(t, "Invalid messages format", resp.Error)
			if tc.wantDetails {
				assert.NotEmpty(t, resp.Details)
			} else {
				assert.Nil(t, resp.Details)
			}
		})
	}
}

func TestGetChatPolicyRejection(t *testing.T) {
	e := newTestServer(t, "http://unused", Options{})

	rec := postChat(e, `{"messages":[{"role":"tool","content":"x"}]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "Request rejected by policy", resp.Error)
	assert.Equal(t, []any{`message 0 has unsupported role "tool"`}, resp.Details)

	rec = postChat(e, `{"messages":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []any{"transcript is empty"}, decodeError(t, rec).Details)
}

func TestGetChatStreamsFrames(t *testing.T) {
	provider := helpers.NewFakeProvider(t, "\n", "", "Hello", " there")
	e := newTestServer(t, provider.URL, Options{})

	rec := postChat(e, `{"messages":[{"role":"user","content":"hi"}]}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "no-cache, no-transform", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rec.Header().Get("Connection"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Empty(t, rec.Header().Get(echo.HeaderContentEncoding))
	assert.Equal(t, "data: {\"text\":\"Hello\"}\n\ndata: {\"text\":\" there\"}\n\n", rec.Body.String())

	requestID := rec.Header().Get(HeaderRequestID)
	require.True(t, strings.HasPrefix(requestID, "chat_"), requestID)

	req := httptest.NewRequest(http.MethodGet, "/api/calls/"+requestID+"/events", nil)
	eventsRec := httptest.NewRecorder()
	e.ServeHTTP(eventsRec, req)

	require.Equal(t, http.StatusOK, eventsRec.Code)
	var resp struct {
		Events []domain.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(eventsRec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 2)
	assert.Equal(t, domain.EventTypeLLMCallStarted, resp.Events[0].Type)
	assert.Equal(t, domain.EventTypeLLMCallDone, resp.Events[1].Type)
}

func TestGetChatUpstreamFailureClosesStream(t *testing.T) {
	provider := helpers.NewFailingProvider(t, http.StatusInternalServerError, `{"error":{"message":"secret detail","type":"server_error"}}`)
	e := newTestServer(t, provider.URL, Options{})

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- postChat(e, `{"messages":[{"role":"user","content":"hi"}]}`)
	}()

	select {
	case rec := <-done:
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "data: {\"error\":\"upstream provider error\"}\n\n", rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "secret detail")
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not close its stream after upstream failure")
	}
}

func TestGetChatSetupFailure(t *testing.T) {
	provider := httptest.NewServer(http.NotFoundHandler())
	providerURL := provider.URL
	provider.Close()

	e := newTestServer(t, providerURL, Options{})

	rec := postChat(e, `{"messages":[{"role":"user","content":"hi"}]}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "Internal Server Error", resp.Error)
	assert.NotEmpty(t, resp.Message)
}

func TestPreflight(t *testing.T) {
	e := newTestServer(t, "http://unused", Options{})

	req := httptest.NewRequest(http.MethodOptions, "/api/getChat", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get(echo.HeaderAccessControlAllowMethods))
	assert.Equal(t, "Content-Type, Authorization", rec.Header().Get(echo.HeaderAccessControlAllowHeaders))
	assert.Empty(t, rec.Body.String())
}

func TestGetChatRateLimited(t *testing.T) {
	e := newTestServer(t, "http://unused", Options{RateLimitRPS: 0.001, RateLimitBurst: 1})

	first := postChat(e, `{}`)
	second := postChat(e, `{}`)

	assert.Equal(t, http.StatusBadRequest, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "Too Many Requests", decodeError(t, second).Error)
}

func TestGetCallEventsEmpty(t *testing.T) {
	e := newTestServer(t, "http://unused", Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/calls/chat_missing/events?limit=5&after_ts=10&types=llm_call_done", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"events":[]}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	e := newTestServer(t, "http://unused", Options{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","version":"0.1.0"}`, rec.Body.String())
}
