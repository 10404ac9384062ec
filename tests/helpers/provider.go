package helpers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// NewFakeProvider serves a streamed chat completion made of deltas followed
// by the [DONE] sentinel, flushing after every chunk.
func NewFakeProvider(t *testing.T, deltas ...string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		for _, d := range deltas {
			fmt.Fprintf(w, "data: {\"model\":\"fake\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", d)
			if flusher != nil {
				flusher.Flush()
			}
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)

	return srv
}

// NewFailingProvider answers every request with status and body.
func NewFailingProvider(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv
}
