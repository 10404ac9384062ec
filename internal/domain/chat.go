package domain

// ChatTurn is a single message in a transcript.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Transcript is the ordered list of turns of one chat session.
type Transcript []ChatTurn

// Last returns the final turn, if any.
func (t Transcript) Last() (ChatTurn, bool) {
	if len(t) == 0 {
		return ChatTurn{}, false
	}
	return t[len(t)-1], true
}

// Clone returns a copy that does not share the backing array.
func (t Transcript) Clone() Transcript {
	if t == nil {
		return nil
	}
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}

// ChatRequest is the body accepted by POST /api/getChat.
type ChatRequest struct {
	Messages []ChatTurn `json:"messages"`
}

// RelayFrame is the payload of one SSE event emitted by the relay.
// Exactly one of Text or Error is meaningful; a frame carrying Error
// is terminal.
type RelayFrame struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// IsError reports whether the frame is a terminal error frame.
func (f RelayFrame) IsError() bool {
	return f.Error != ""
}

// ErrorResponse is the JSON body of non-streaming failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}
