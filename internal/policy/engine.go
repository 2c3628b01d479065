// Package policy decides whether an inbound mail may become a doctor
// message, using a rego module.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

// ReplyInput is the evidence the reconciler gathered about one mail.
type ReplyInput struct {
	HasConversationID bool `json:"has_conversation_id"`
	IsReply           bool `json:"is_reply"`
	FromOperator      bool `json:"from_operator"`
	FromSentFolder    bool `json:"from_sent_folder"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.reply_policy.decision"),
		rego.Module("reply_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewDefaultEngine prepares DefaultPolicy.
func NewDefaultEngine(ctx context.Context) (*Engine, error) {
	return NewEngine(ctx, DefaultPolicy)
}

// Evaluate returns accept, hold or reject. A policy that yields nothing or
// an unknown value rejects.
func (e *Engine) Evaluate(ctx context.Context, in ReplyInput) (domain.ReplyDecision, error) {
	input := map[string]interface{}{
		"has_conversation_id": in.HasConversationID,
		"is_reply":            in.IsReply,
		"from_operator":       in.FromOperator,
		"from_sent_folder":    in.FromSentFolder,
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.ReplyDecisionReject, nil
	}

	s, _ := results[0].Expressions[0].Value.(string)
	switch d := domain.ReplyDecision(s); d {
	case domain.ReplyDecisionAccept, domain.ReplyDecisionHold, domain.ReplyDecisionReject:
		return d, nil
	}
	return domain.ReplyDecisionReject, nil
}

// DefaultPolicy admits mail that names its conversation and is either a
// reply or written by the operator. Operator replies without a usable id
// are held for manual assignment; anything else is rejected.
const DefaultPolicy = `
package reply_policy

import rego.v1

default decision := "reject"

operator if input.from_operator
operator if input.from_sent_folder

decision := "accept" if {
	input.has_conversation_id
	input.is_reply
}

decision := "accept" if {
	input.has_conversation_id
	operator
}

decision := "hold" if {
	not input.has_conversation_id
	input.is_reply
	operator
}
`
