package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrStreamingUnsupported is returned when the response writer cannot flush.
var ErrStreamingUnsupported = errors.New("streaming not supported")

// SetHeaders sets the response headers of an event stream. The stream must
// reach the client unmodified, so intermediaries are told not to transform it.
func SetHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Del("Content-Encoding")
	h.Del("Content-Length")
}

// EncodeFrame returns v framed as a single SSE data event.
func EncodeFrame(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frame: %w", err)
	}
	out := make([]byte, 0, len(DataPrefix)+len(data)+2)
	out = append(out, DataPrefix...)
	out = append(out, data...)
	out = append(out, '\n', '\n')
	return out, nil
}

// WriteFrame writes v to w as a single SSE data event.
func WriteFrame(w io.Writer, v any) error {
	frame, err := EncodeFrame(v)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// Writer writes frames to an HTTP response, flushing after each one so the
// client observes every frame as soon as it is produced.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

// NewWriter wraps w. It fails if w cannot be flushed.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	return &Writer{w: w, flusher: flusher}, nil
}

// Start commits the event stream headers and a 200 status.
func (s *Writer) Start() error {
	if s.started {
		return nil
	}
	SetHeaders(s.w.Header())
	s.w.WriteHeader(http.StatusOK)
	s.flusher.Flush()
	s.started = true
	return nil
}

// Started reports whether the headers have been committed.
func (s *Writer) Started() bool {
	return s.started
}

// Send writes one frame and flushes it.
func (s *Writer) Send(v any) error {
	if err := s.Start(); err != nil {
		return err
	}
	if err := WriteFrame(s.w, v); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
