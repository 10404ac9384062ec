package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/planoeducation/planoeducation/internal/domain"
)

// ApologyMessage is appended as an assistant turn when a submission fails.
const ApologyMessage = "Sorry, something went wrong. Please try again."

var (
	// ErrEmptyInput is returned when the submitted text is blank.
	ErrEmptyInput = errors.New("empty input")
	// ErrBusy is returned when a submission is made while another is in flight.
	ErrBusy = errors.New("a response is still in progress")
)

// State is the submission state of a Session.
type State int

const (
	StateIdle State = iota
	StateAwaiting
	StateStreaming
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaiting:
		return "awaiting-response"
	case StateStreaming:
		return "streaming"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Snapshot is what observers see after every change.
type Snapshot struct {
	State      State
	Transcript domain.Transcript
}

// Observer is notified synchronously from the submitting goroutine.
type Observer func(Snapshot)

// Streamer opens a relay stream for a transcript.
type Streamer interface {
	OpenStream(ctx context.Context, turns []domain.ChatTurn) (io.ReadCloser, error)
}

// Ensure Client implements Streamer interface.
var _ Streamer = (*Client)(nil)

// Session owns one transcript and runs at most one submission at a time.
type Session struct {
	streamer Streamer

	mu         sync.Mutex
	state      State
	transcript domain.Transcript
	observers  []Observer
}

// NewSession creates an idle session with an empty transcript.
func NewSession(streamer Streamer) *Session {
	return &Session{streamer: streamer}
}

// Subscribe registers o for every later change.
func (s *Session) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns a copy of the current transcript.
func (s *Session) Transcript() domain.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Clone()
}

// Reset discards the transcript. It fails with ErrBusy during a submission.
func (s *Session) Reset() error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrBusy
	}
	s.transcript = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// Submit appends input as a user turn and streams the answer into the
// transcript, returning once the stream has ended. On failure the partial
// answer is dropped, ApologyMessage is appended and the error is returned;
// the session is idle again either way.
func (s *Session) Submit(ctx context.Context, input string) error {
	if strings.TrimSpace(input) == "" {
		return ErrEmptyInput
	}

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrBusy
	}
	s.transcript = append(s.transcript.Clone(), domain.ChatTurn{Role: domain.RoleUser, Content: input})
	s.state = StateAwaiting
	turns := s.transcript.Clone()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	body, err := s.streamer.OpenStream(ctx, turns)
	if err != nil {
		return s.fail(turns, err)
	}
	defer body.Close()

	merger := NewMerger(turns)
	reader := &firstByteReader{r: body, onFirst: func() { s.transition(StateStreaming, nil) }}
	if err := merger.Consume(reader, func(t domain.Transcript) { s.transition(StateStreaming, t) }); err != nil {
		return s.fail(turns, err)
	}

	s.transition(StateIdle, merger.Transcript())
	return nil
}

// transition moves to state, replacing the transcript when t is non-nil.
func (s *Session) transition(state State, t domain.Transcript) {
	s.mu.Lock()
	s.state = state
	if t != nil {
		s.transcript = t
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Session) fail(turns domain.Transcript, cause error) error {
	logrus.WithError(cause).Warn("chat submission failed")
	s.transition(StateError, append(turns.Clone(), domain.ChatTurn{Role: domain.RoleAssistant, Content: ApologyMessage}))
	s.transition(StateIdle, nil)
	return cause
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{State: s.state, Transcript: s.transcript.Clone()}
}

func (s *Session) notify(snap Snapshot) {
	s.mu.Lock()
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()
	for _, o := range observers {
		o(snap)
	}
}

// firstByteReader calls onFirst once, when the first bytes arrive.
type firstByteReader struct {
	r       io.Reader
	onFirst func()
	seen    bool
}

func (f *firstByteReader) Read(p []byte) (int, error) {
	n, err := f.r.Read(p)
	if n > 0 && !f.seen {
		f.seen = true
		f.onFirst()
	}
	return n, err
}
