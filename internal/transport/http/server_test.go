package http

import (
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/planoeducation/planoeducation/internal/adapter/llm"
	"github.com/planoeducation/planoeducation/internal/config"
	"github.com/planoeducation/planoeducation/internal/relay"
	"github.com/planoeducation/planoeducation/internal/service"
	"github.com/planoeducation/planoeducation/internal/transport/http/chat"
	"github.com/planoeducation/planoeducation/tests/helpers"
)

func TestNewServerRoutes(t *testing.T) {
	r := relay.New(llm.NewClient("http://unused", config.Credentials{}, time.Second), relay.Options{})
	e := NewServer(service.New(helpers.NewTestSQLiteStore(t), r, nil), chat.Options{})

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{nethttp.MethodGet, "/health", nethttp.StatusOK},
		{nethttp.MethodOptions, "/api/getChat", nethttp.StatusNoContent},
		{nethttp.MethodPost, "/api/getChat", nethttp.StatusBadRequest},
		{nethttp.MethodGet, "/missing", nethttp.StatusNotFound},
	}

	for _, tc := range tests {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, "%s %s", tc.method, tc.path)
	}
}
