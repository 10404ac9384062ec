package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/planoeducation/planoeducation/internal/domain"
	"github.com/planoeducation/planoeducation/internal/relay"
	"github.com/planoeducation/planoeducation/internal/sse"
)

// GetChat relays a chat transcript to the provider and streams the answer.
// POST /api/getChat
func (h *Handler) GetChat(c echo.Context) error {
	ctx := c.Request().Context()
	c.Response().Header().Set(echo.HeaderAccessControlAllowOrigin, "*")

	turns, details, ok := decodeMessages(c.Request().Body)
	if !ok {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "Invalid messages format",
			Details: details,
		})
	}

	reasons, err := h.service.AdmitChat(ctx, turns)
	if err != nil {
		logrus.WithError(err).Error("admission policy failed")
		return internalError(c, err)
	}
	if len(reasons) > 0 {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "Request rejected by policy",
			Details: reasons,
		})
	}

	requestID := "chat_" + uuid.New().String()[:8]
	c.Response().Header().Set(HeaderRequestID, requestID)

	sink, err := sse.NewWriter(c.Response())
	if err != nil {
		return internalError(c, err)
	}

	_, err = h.service.StreamChat(ctx, requestID, turns, sink)
	if err == nil {
		return nil
	}

	log := logrus.WithError(err).WithField("request_id", requestID)
	var setupErr *relay.SetupError
	if errors.As(err, &setupErr) && !sink.Started() {
		log.Error("chat relay setup failed")
		return internalError(c, err)
	}
	// Headers are committed; the stream already carries the outcome.
	log.Warn("chat relay ended with error")
	return nil
}

// decodeMessages accepts a JSON object whose messages field is an array of
// chat turns. details describes element decoding failures.
func decodeMessages(body io.Reader) (turns []domain.ChatTurn, details any, ok bool) {
	var req struct {
		Messages json.RawMessage `json:"messages"`
	}
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return nil, nil, false
	}

	raw := bytes.TrimSpace(req.Messages)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, nil, false
	}

	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, err.Error(), false
	}
	if turns == nil {
		turns = []domain.ChatTurn{}
	}
	return turns, nil, true
}

func internalError(c echo.Context, err error) error {
	return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{
		Error:   "Internal Server Error",
		Message: err.Error(),
	})
}
