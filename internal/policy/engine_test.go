package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

func TestDefaultPolicyDecisions(t *testing.T) {
	ctx := context.Background()
	engine, err := NewDefaultEngine(ctx)
	require.NoError(t, err)

	cases := []struct {
		name string
		in   ReplyInput
		want domain.ReplyDecision
	}{
		{"marked reply", ReplyInput{HasConversationID: true, IsReply: true}, domain.ReplyDecisionAccept},
		{"marked operator mail", ReplyInput{HasConversationID: true, FromOperator: true}, domain.ReplyDecisionAccept},
		{"marked sent mail", ReplyInput{HasConversationID: true, FromSentFolder: true}, domain.ReplyDecisionAccept},
		{"marked stranger mail", ReplyInput{HasConversationID: true}, domain.ReplyDecisionReject},
		{"unmarked operator reply", ReplyInput{IsReply: true, FromOperator: true}, domain.ReplyDecisionHold},
		{"unmarked sent reply", ReplyInput{IsReply: true, FromSentFolder: true}, domain.ReplyDecisionHold},
		{"unmarked sent mail", ReplyInput{FromSentFolder: true}, domain.ReplyDecisionReject},
		{"unmarked stranger reply", ReplyInput{IsReply: true}, domain.ReplyDecisionReject},
		{"nothing", ReplyInput{}, domain.ReplyDecisionReject},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.Evaluate(ctx, tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCustomPolicyUnknownValueRejects(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, `
package reply_policy

import rego.v1

decision := "maybe" if input.is_reply
`)
	require.NoError(t, err)

	got, err := engine.Evaluate(ctx, ReplyInput{IsReply: true})
	require.NoError(t, err)
	assert.Equal(t, domain.ReplyDecisionReject, got)

	got, err = engine.Evaluate(ctx, ReplyInput{})
	require.NoError(t, err)
	assert.Equal(t, domain.ReplyDecisionReject, got, "undefined decision")
}

func TestInvalidPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package reply_policy\n\ndecision := ")
	assert.Error(t, err)
}
