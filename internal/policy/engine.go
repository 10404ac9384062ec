// Package policy evaluates the admission policy for chat requests.
package policy

import (
	"context"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/rego"

	"github.com/planoeducation/planoeducation/internal/domain"
)

// Limits are passed to the policy with every evaluation.
type Limits struct {
	MaxMessages int
	// MaxContentBytes of zero disables the size check.
	MaxContentBytes int
}

// Input is the document the policy sees as `input`.
type Input struct {
	Messages        []domain.ChatTurn `json:"messages"`
	ContentBytes    int               `json:"content_bytes"`
	MaxMessages     int               `json:"max_messages"`
	MaxContentBytes int               `json:"max_content_bytes"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query  rego.PreparedEvalQuery
	limits Limits
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string, limits Limits) (*Engine, error) {
	r := rego.New(
		rego.Query("data.chat_policy.deny"),
		rego.Module("chat_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query, limits: limits}, nil
}

// CheckChat returns the reasons turns are rejected; none means admitted.
func (e *Engine) CheckChat(ctx context.Context, turns []domain.ChatTurn) ([]string, error) {
	size := 0
	for _, t := range turns {
		size += len(t.Content)
	}
	if turns == nil {
		turns = []domain.ChatTurn{}
	}
	return e.Evaluate(ctx, Input{
		Messages:        turns,
		ContentBytes:    size,
		MaxMessages:     e.limits.MaxMessages,
		MaxContentBytes: e.limits.MaxContentBytes,
	})
}

// Evaluate runs the deny query and returns its reasons sorted.
func (e *Engine) Evaluate(ctx context.Context, input any) ([]string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return nil, nil
	}

	set, ok := results[0].Expressions[0].Value.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}

	reasons := make([]string, 0, len(set))
	for _, v := range set {
		reasons = append(reasons, fmt.Sprint(v))
	}
	sort.Strings(reasons)
	return reasons, nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package chat_policy

import rego.v1

allowed_roles := {"user", "assistant", "system"}

deny contains "transcript is empty" if {
	count(input.messages) == 0
}

deny contains msg if {
	input.max_messages > 0
	count(input.messages) > input.max_messages
	msg := sprintf("transcript has %d messages, limit is %d", [count(input.messages), input.max_messages])
}

deny contains msg if {
	some i, m in input.messages
	not m.role in allowed_roles
	msg := sprintf("message %d has unsupported role \"%v\"", [i, m.role])
}

deny contains msg if {
	input.max_content_bytes > 0
	input.content_bytes > input.max_content_bytes
	msg := sprintf("transcript content is %d bytes, limit is %d", [input.content_bytes, input.max_content_bytes])
}
`
