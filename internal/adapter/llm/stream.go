package llm

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/planoeducation/planoeducation/internal/sse"
)

// DoneSentinel marks the end of a provider stream.
const DoneSentinel = "[DONE]"

// ChatCompletionStream yields the deltas of a streamed completion.
type ChatCompletionStream struct {
	body    io.ReadCloser
	decoder *sse.Decoder[StreamChunk]
	skipped int
}

// NewChatCompletionStream reads provider SSE chunks from body.
func NewChatCompletionStream(body io.ReadCloser) *ChatCompletionStream {
	return &ChatCompletionStream{
		body:    body,
		decoder: sse.NewDecoder[StreamChunk](body, sse.WithSentinel(DoneSentinel), sse.WithLenientData()),
	}
}

// Recv returns the next delta. It returns io.EOF once the provider signals
// completion or closes the stream. Malformed chunks are logged and skipped.
func (s *ChatCompletionStream) Recv() (Delta, error) {
	for {
		ev, err := s.decoder.Next()
		if err != nil {
			return Delta{}, err
		}

		switch ev.Kind {
		case sse.KindEnd:
			return Delta{}, io.EOF
		case sse.KindMalformed:
			s.skipped++
			logrus.WithError(ev.Err).WithField("line", truncate(ev.Raw, 200)).Warn("skipping malformed provider chunk")
			continue
		default:
			return deltaFromChunk(&ev.Payload), nil
		}
	}
}

// Malformed returns the number of chunks skipped so far.
func (s *ChatCompletionStream) Malformed() int {
	return s.skipped
}

// Close releases the underlying connection.
func (s *ChatCompletionStream) Close() error {
	return s.body.Close()
}

// truncate truncates a string to maxLen runes.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
