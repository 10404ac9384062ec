package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/planoeducation/planoeducation/internal/domain"
	"github.com/planoeducation/planoeducation/internal/relay"
)

// AdmitChat returns the reasons the admission policy rejects turns.
func (s *Service) AdmitChat(ctx context.Context, turns []domain.ChatTurn) ([]string, error) {
	if s.policyEngine == nil {
		return nil, nil
	}
	return s.policyEngine.CheckChat(ctx, turns)
}

// StreamChat relays one chat request into sink and records the call.
func (s *Service) StreamChat(ctx context.Context, requestID string, turns []domain.ChatTurn, sink relay.Sink) (relay.Result, error) {
	startTime := time.Now()
	log := logrus.WithField("request_id", requestID)

	if err := s.recordEvent(ctx, requestID, domain.EventTypeLLMCallStarted, domain.LLMCallStartedPayload{
		RequestID: requestID,
		Model:     s.relay.Model(),
		Messages:  len(turns),
	}); err != nil {
		log.WithError(err).Warn("failed to record llm_call_started event")
	}

	res, err := s.relay.Run(ctx, turns, sink)

	payload := domain.LLMCallDonePayload{
		RequestID:    requestID,
		Model:        res.Model,
		LatencyMs:    time.Since(startTime).Milliseconds(),
		Frames:       res.Frames,
		Skipped:      res.Skipped,
		FinishReason: res.FinishReason,
	}
	if err != nil {
		payload.Error = err.Error()
	}
	// The request context is gone once the caller disconnects.
	if recordErr := s.recordEvent(context.WithoutCancel(ctx), requestID, domain.EventTypeLLMCallDone, payload); recordErr != nil {
		log.WithError(recordErr).Warn("failed to record llm_call_done event")
	}

	log.WithFields(logrus.Fields{
		"model":      res.Model,
		"frames":     res.Frames,
		"skipped":    res.Skipped,
		"latency_ms": payload.LatencyMs,
	}).Info("chat relay finished")

	return res, err
}
