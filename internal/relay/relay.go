// Package relay turns an upstream provider stream into the relay's own
// event stream of {"text": ...} frames.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/planoeducation/planoeducation/internal/adapter/llm"
	"github.com/planoeducation/planoeducation/internal/domain"
)

// UpstreamErrorMessage is the payload of the terminal error frame.
const UpstreamErrorMessage = "upstream provider error"

// warmupDeltas is how many leading deltas may be dropped when they carry no
// visible text. The provider opens some streams with a bare newline.
const warmupDeltas = 2

// Sink receives frames. Start commits the stream before the first frame.
type Sink interface {
	Start() error
	Send(v any) error
}

// Options configures the upstream request.
type Options struct {
	Model       string
	MaxTokens   *int
	Temperature *float64
	// Timeout bounds one call end to end. Zero means no bound.
	Timeout time.Duration
}

// Result summarizes one relay call.
type Result struct {
	Frames       int
	Skipped      int
	Model        string
	FinishReason string
}

// SetupError reports a failure before anything was written to the sink.
type SetupError struct {
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("failed to open upstream stream: %v", e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// errorFrame is the terminal frame sent when the upstream call fails.
type errorFrame struct {
	Error string `json:"error"`
}

// Relay forwards chat transcripts to the provider.
type Relay struct {
	provider llm.LLMClient
	opts     Options
}

// New creates a relay over provider.
func New(provider llm.LLMClient, opts Options) *Relay {
	return &Relay{provider: provider, opts: opts}
}

// Model returns the configured completion model.
func (r *Relay) Model() string {
	return r.opts.Model
}

// Run streams a completion for turns into sink. A *SetupError means the sink
// was never started and the caller still owns the response. Any other error
// has already been reported to the sink as a terminal error frame.
func (r *Relay) Run(ctx context.Context, turns []domain.ChatTurn, sink Sink) (Result, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	res := Result{Model: r.opts.Model}

	stream, err := r.provider.OpenChatCompletionStream(ctx, &llm.ChatCompletionRequest{
		Model:       r.opts.Model,
		Messages:    turns,
		Stream:      true,
		MaxTokens:   r.opts.MaxTokens,
		Temperature: r.opts.Temperature,
	})
	if err != nil {
		var statusErr *llm.StatusError
		if !errors.As(err, &statusErr) {
			return res, &SetupError{Err: err}
		}
		logrus.WithFields(logrus.Fields{
			"status": statusErr.StatusCode,
			"body":   statusErr.Body,
			"model":  r.opts.Model,
		}).Error("upstream provider rejected request")
		return res, r.fail(sink, err)
	}
	defer stream.Close()

	if err := sink.Start(); err != nil {
		return res, fmt.Errorf("failed to start stream: %w", err)
	}

	received := 0
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			logrus.WithError(err).WithField("frames", res.Frames).Error("upstream stream failed")
			return res, r.fail(sink, err)
		}

		received++
		if delta.Model != "" {
			res.Model = delta.Model
		}
		if delta.FinishReason != "" {
			res.FinishReason = delta.FinishReason
		}
		if received <= warmupDeltas && strings.TrimSpace(delta.Text) == "" {
			res.Skipped++
			continue
		}

		if err := sink.Send(domain.RelayFrame{Text: delta.Text}); err != nil {
			return res, fmt.Errorf("failed to send frame: %w", err)
		}
		res.Frames++
	}
}

// fail ends the sink with a terminal error frame and returns cause.
func (r *Relay) fail(sink Sink, cause error) error {
	if err := sink.Send(errorFrame{Error: UpstreamErrorMessage}); err != nil {
		logrus.WithError(err).Debug("failed to send error frame")
	}
	return cause
}
