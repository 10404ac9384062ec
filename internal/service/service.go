// Package service wires the relay to the admission policy and the audit log.
package service

import (
	"github.com/planoeducation/planoeducation/internal/policy"
	"github.com/planoeducation/planoeducation/internal/relay"
	"github.com/planoeducation/planoeducation/internal/repository"
)

type Service struct {
	store        repository.Store
	relay        *relay.Relay
	policyEngine *policy.Engine
}

// New creates the service. A nil policy engine admits every request.
func New(store repository.Store, relay *relay.Relay, policyEngine *policy.Engine) *Service {
	return &Service{
		store:        store,
		relay:        relay,
		policyEngine: policyEngine,
	}
}
