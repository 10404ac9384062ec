package client

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/planoeducation/planoeducation/internal/domain"
	"github.com/planoeducation/planoeducation/internal/sse"
)

// FrameError is returned when the relay ends its stream with an error frame.
type FrameError struct {
	Message string
}

func (e *FrameError) Error() string {
	return "relay reported error: " + e.Message
}

// Merger folds relay frames into a transcript. The answer being streamed is
// accumulated separately and written into the transcript's last turn on
// every merge, so the turn only ever grows.
type Merger struct {
	transcript domain.Transcript
	answer     strings.Builder
	// turn is the index of the assistant turn being grown, -1 before the
	// first delta.
	turn  int
	ended bool
}

// NewMerger starts merging into a copy of transcript.
func NewMerger(transcript domain.Transcript) *Merger {
	return &Merger{transcript: transcript.Clone(), turn: -1}
}

// Apply merges one decoded event. changed reports whether the transcript
// was updated. An error frame yields a *FrameError.
func (m *Merger) Apply(ev sse.Event[domain.RelayFrame]) (changed bool, err error) {
	switch ev.Kind {
	case sse.KindFrame:
		if ev.Payload.IsError() {
			return false, &FrameError{Message: ev.Payload.Error}
		}
		if ev.Payload.Text == "" {
			return false, nil
		}
		m.merge(ev.Payload.Text)
		return true, nil
	case sse.KindMalformed:
		logrus.WithError(ev.Err).WithField("line", ev.Raw).Warn("discarding malformed frame")
		return false, nil
	case sse.KindEnd:
		m.ended = true
		return false, nil
	default:
		return false, fmt.Errorf("unknown event kind %v", ev.Kind)
	}
}

func (m *Merger) merge(delta string) {
	if m.turn < 0 {
		if last, ok := m.transcript.Last(); ok && last.Role == domain.RoleAssistant {
			m.turn = len(m.transcript) - 1
			m.answer.WriteString(last.Content)
		} else {
			m.transcript = append(m.transcript, domain.ChatTurn{Role: domain.RoleAssistant})
			m.turn = len(m.transcript) - 1
		}
	}
	m.answer.WriteString(delta)
	m.transcript[m.turn].Content = m.answer.String()
}

// Consume decodes frames from r until the stream ends, calling onUpdate
// with a transcript copy after every merge.
func (m *Merger) Consume(r io.Reader, onUpdate func(domain.Transcript)) error {
	decoder := sse.NewDecoder[domain.RelayFrame](r)
	for !m.ended {
		ev, err := decoder.Next()
		if err != nil {
			return err
		}
		changed, err := m.Apply(ev)
		if err != nil {
			return err
		}
		if changed && onUpdate != nil {
			onUpdate(m.Transcript())
		}
	}
	return nil
}

// Transcript returns a copy of the merged transcript.
func (m *Merger) Transcript() domain.Transcript {
	return m.transcript.Clone()
}

// Answer returns the assistant text merged so far.
func (m *Merger) Answer() string {
	return m.answer.String()
}

// Ended reports whether the end of the stream was reached.
func (m *Merger) Ended() bool {
	return m.ended
}
