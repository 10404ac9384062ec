package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planoeducation/planoeducation/internal/domain"
)

type streamerFunc func(ctx context.Context, turns []domain.ChatTurn) (io.ReadCloser, error)

func (f streamerFunc) OpenStream(ctx context.Context, turns []domain.ChatTurn) (io.ReadCloser, error) {
	return f(ctx, turns)
}

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) observe(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.snaps))
	for i, s := range r.snaps {
		out[i] = s.State
	}
	return out
}

func TestSessionSubmitStreamsAnswer(t *testing.T) {
	var sent []domain.ChatTurn
	stream := relayStream(t, "Hel", "lo")
	s := NewSession(streamerFunc(func(ctx context.Context, turns []domain.ChatTurn) (io.ReadCloser, error) {
		sent = turns
		return io.NopCloser(bytes.NewReader(stream)), nil
	}))
	rec := &recorder{}
	s.Subscribe(rec.observe)

	require.NoError(t, s.Submit(context.Background(), "hi"))

	assert.Equal(t, []domain.ChatTurn{{Role: domain.RoleUser, Content: "hi"}}, sent)
	assert.Equal(t, domain.Transcript{
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, Content: "Hello"},
	}, s.Transcript())
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, []State{StateAwaiting, StateStreaming, StateStreaming, StateStreaming, StateIdle}, rec.states())

	// The user turn is visible before the network call resolves.
	assert.Equal(t, domain.Transcript{{Role: domain.RoleUser, Content: "hi"}}, rec.snaps[0].Transcript)
	assert.Equal(t, "Hel", rec.snaps[2].Transcript[1].Content)
}

func TestSessionSendsHistory(t *testing.T) {
	var calls [][]domain.ChatTurn
	s := NewSession(streamerFunc(func(ctx context.Context, turns []domain.ChatTurn) (io.ReadCloser, error) {
		calls = append(calls, turns)
		return io.NopCloser(bytes.NewReader(relayStream(t, "ok"))), nil
	}))

	require.NoError(t, s.Submit(context.Background(), "one"))
	require.NoError(t, s.Submit(context.Background(), "two"))

	require.Len(t, calls, 2)
	assert.Equal(t, []domain.ChatTurn{
		{Role: domain.RoleUser, Content: "one"},
		{Role: domain.RoleAssistant, Content: "ok"},
		{Role: domain.RoleUser, Content: "two"},
	}, calls[1])
	assert.Len(t, s.Transcript(), 4)
}

func TestSessionFetchFailureAppendsApology(t *testing.T) {
	boom := errors.New("connection refused")
	s := NewSession(streamerFunc(func(ctx context.Context, turns []domain.ChatTurn) (io.ReadCloser, error) {
		return nil, boom
	}))
	rec := &recorder{}
	s.Subscribe(rec.observe)

	err := s.Submit(context.Background(), "hi")

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, domain.Transcript{
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, Content: ApologyMessage},
	}, s.Transcript())
	assert.Equal(t, []State{StateAwaiting, StateError, StateIdle}, rec.states())
}

func TestSessionErrorFrameReplacesPartialAnswer(t *testing.T) {
	stream := "data: {\"text\":\"partial\"}\n\ndata: {\"error\":\"upstream provider error\"}\n\n"
	s := NewSession(streamerFunc(func(ctx context.Context, turns []domain.ChatTurn) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader([]byte(stream))), nil
	}))

	err := s.Submit(context.Background(), "hi")

	var frameErr *FrameError
	require.ErrorAs(t, err, &frameErr)
	assert.Equal(t, domain.Transcript{
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, Content: ApologyMessage},
	}, s.Transcript())
	assert.Equal(t, StateIdle, s.State())
}

func TestSessionRejectsEmptyInput(t *testing.T) {
	s := NewSession(streamerFunc(func(ctx context.Context, turns []domain.ChatTurn) (io.ReadCloser, error) {
		t.Fatal("no request expected")
		return nil, nil
	}))

	assert.ErrorIs(t, s.Submit(context.Background(), "  \n\t"), ErrEmptyInput)
	assert.Empty(t, s.Transcript())
}

func TestSessionRejectsOverlappingSubmissions(t *testing.T) {
	pr, pw := io.Pipe()
	s := NewSession(streamerFunc(func(ctx context.Context, turns []domain.ChatTurn) (io.ReadCloser, error) {
		return pr, nil
	}))
	streaming := make(chan struct{})
	var once sync.Once
	s.Subscribe(func(snap Snapshot) {
		if snap.State == StateStreaming {
			once.Do(func() { close(streaming) })
		}
	})

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background(), "first") }()

	_, err := pw.Write(relayStream(t, "Hel"))
	require.NoError(t, err)
	select {
	case <-streaming:
	case <-time.After(5 * time.Second):
		t.Fatal("session never started streaming")
	}

	assert.ErrorIs(t, s.Submit(context.Background(), "second"), ErrBusy)
	assert.ErrorIs(t, s.Reset(), ErrBusy)

	_, err = pw.Write(relayStream(t, "lo"))
	require.NoError(t, err)
	require.NoError(t, pw.Close())
	require.NoError(t, <-done)

	assert.Equal(t, domain.Transcript{
		{Role: domain.RoleUser, Content: "first"},
		{Role: domain.RoleAssistant, Content: "Hello"},
	}, s.Transcript())
}

func TestSessionReset(t *testing.T) {
	s := NewSession(streamerFunc(func(ctx context.Context, turns []domain.ChatTurn) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(relayStream(t, "ok"))), nil
	}))
	require.NoError(t, s.Submit(context.Background(), "hi"))

	rec := &recorder{}
	s.Subscribe(rec.observe)
	require.NoError(t, s.Reset())

	assert.Empty(t, s.Transcript())
	assert.Equal(t, []State{StateIdle}, rec.states())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "awaiting-response", StateAwaiting.String())
	assert.Equal(t, "streaming", StateStreaming.String())
	assert.Equal(t, "error", StateError.String())
	assert.Equal(t, "state(7)", State(7).String())
}
