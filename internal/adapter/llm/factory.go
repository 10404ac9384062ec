package llm

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/planoeducation/planoeducation/internal/config"
)

// ModeMock selects the mock client.
const ModeMock = "MOCK"

// NewLLMClient creates an LLM client based on the configured mode.
// If the mode is MOCK, returns a MockClient; otherwise returns a real Client.
func NewLLMClient(mode, baseURL string, creds config.Credentials, timeout time.Duration) LLMClient {
	if mode == ModeMock {
		logrus.Info("PLANO_MODE=MOCK detected, using mock LLM client")
		return NewMockClient()
	}

	return NewClient(baseURL, creds, timeout)
}
