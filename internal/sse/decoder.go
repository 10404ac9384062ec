// Package sse implements the Server-Sent-Events framing shared by the relay
// and its clients: a frame encoder and a frame reconstructor that is
// independent of how the transport splits the byte stream.
package sse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DataPrefix is the literal prefix of a data line.
const DataPrefix = "data: "

// DefaultReadSize is the size of a single Read on the underlying stream.
const DefaultReadSize = 4096

// Kind discriminates the variants of Event.
type Kind int

const (
	// KindFrame carries a decoded payload.
	KindFrame Kind = iota + 1
	// KindMalformed carries a line that could not be decoded.
	KindMalformed
	// KindEnd marks the end of the stream. No events follow it.
	KindEnd
)

func (k Kind) String() string {
	switch k {
	case KindFrame:
		return "frame"
	case KindMalformed:
		return "malformed"
	case KindEnd:
		return "end"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event is one item produced by a Decoder.
// Payload is set for KindFrame; Raw and Err are set for KindMalformed.
type Event[T any] struct {
	Kind    Kind
	Payload T
	Raw     string
	Err     error
}

type options struct {
	sentinel string
	readSize int
	lenient  bool
}

// Option configures a Decoder.
type Option func(*options)

// WithSentinel makes a data line whose payload equals s end the stream.
// The sentinel line itself is never reported as a frame.
func WithSentinel(s string) Option {
	return func(o *options) {
		o.sentinel = s
	}
}

// WithLenientData accepts "data:" lines without the space after the colon
// and skips SSE comment lines (starting with ':') without reporting them.
func WithLenientData() Option {
	return func(o *options) {
		o.lenient = true
	}
}

// WithReadSize sets the buffer size used for each Read call.
func WithReadSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.readSize = n
		}
	}
}

// Decoder reconstructs SSE data lines from an arbitrarily chunked byte
// stream. Bytes after the last newline are carried over to the next read
// and, once the stream ends, processed as a final line.
type Decoder[T any] struct {
	r     io.Reader
	opts  options
	buf   []byte
	carry []byte
	lines [][]byte
	eof   bool
	done  bool
}

// NewDecoder creates a decoder reading from r.
func NewDecoder[T any](r io.Reader, opts ...Option) *Decoder[T] {
	o := options{readSize: DefaultReadSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &Decoder[T]{
		r:    r,
		opts: o,
		buf:  make([]byte, o.readSize),
	}
}

// Next returns the next event. Blank lines are skipped. Once a KindEnd
// event has been returned every later call returns KindEnd again.
// A non-nil error is only returned for failures of the underlying reader.
func (d *Decoder[T]) Next() (Event[T], error) {
	for {
		if d.done {
			return Event[T]{Kind: KindEnd}, nil
		}

		if len(d.lines) > 0 {
			line := d.lines[0]
			d.lines = d.lines[1:]
			ev, ok := d.parse(line)
			if !ok {
				continue
			}
			if ev.Kind == KindEnd {
				d.done = true
			}
			return ev, nil
		}

		if d.eof {
			d.done = true
			continue
		}

		n, err := d.r.Read(d.buf)
		if n > 0 {
			d.feed(d.buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.eof = true
				if len(d.carry) > 0 {
					d.lines = append(d.lines, d.carry)
					d.carry = nil
				}
				continue
			}
			return Event[T]{}, fmt.Errorf("failed to read stream: %w", err)
		}
	}
}

// feed appends p to the carry-over buffer and queues every complete line.
func (d *Decoder[T]) feed(p []byte) {
	d.carry = append(d.carry, p...)
	for {
		i := bytes.IndexByte(d.carry, '\n')
		if i < 0 {
			break
		}
		line := make([]byte, i)
		copy(line, d.carry[:i])
		d.lines = append(d.lines, line)
		d.carry = d.carry[i+1:]
	}
	if len(d.carry) == 0 {
		d.carry = nil
	}
}

func (d *Decoder[T]) parse(line []byte) (Event[T], bool) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(bytes.TrimSpace(line)) == 0 {
		return Event[T]{}, false
	}

	data, ok := d.data(line)
	if !ok {
		if d.opts.lenient && line[0] == ':' {
			return Event[T]{}, false
		}
		return Event[T]{
			Kind: KindMalformed,
			Raw:  string(line),
			Err:  errors.New("missing data prefix"),
		}, true
	}

	if d.opts.sentinel != "" && string(bytes.TrimSpace(data)) == d.opts.sentinel {
		return Event[T]{Kind: KindEnd}, true
	}

	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return Event[T]{
			Kind: KindMalformed,
			Raw:  string(line),
			Err:  fmt.Errorf("failed to decode frame: %w", err),
		}, true
	}

	return Event[T]{Kind: KindFrame, Payload: payload}, true
}

// data strips the data field prefix from line.
func (d *Decoder[T]) data(line []byte) ([]byte, bool) {
	if bytes.HasPrefix(line, []byte(DataPrefix)) {
		return line[len(DataPrefix):], true
	}
	if d.opts.lenient && bytes.HasPrefix(line, []byte("data:")) {
		return line[len("data:"):], true
	}
	return nil, false
}
