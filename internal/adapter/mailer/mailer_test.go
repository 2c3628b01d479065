package mailer

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

func TestBuildSetsMessageID(t *testing.T) {
	s := NewSMTP(Config{Username: "clinic@hospital.example"})

	msg, id, err := s.build(Email{
		To:      "clinic@hospital.example",
		Subject: "New message from Jane [CONV-1A2B3C4D]",
		Text:    "I have a fever",
		HTML:    "<p>I have a fever</p>",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(id, "@hospital.example"), id)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "Message-ID: <"+id+">")
	assert.Contains(t, raw, "[CONV-1A2B3C4D]")
	assert.Contains(t, raw, "multipart/alternative")
}

func TestBuildRejectsBadAddress(t *testing.T) {
	s := NewSMTP(Config{Username: "clinic@hospital.example"})
	_, _, err := s.build(Email{To: "not an address"})
	assert.Error(t, err)
}

func TestSendDisabledWithoutCredentials(t *testing.T) {
	_, err := NewSMTP(Config{Host: "smtp.example"}).Send(context.Background(), Email{To: "a@b.c"})
	assert.ErrorIs(t, err, domain.ErrMailDisabled)
}

func TestNewMessageIDFallsBackToLocalhost(t *testing.T) {
	assert.True(t, strings.HasSuffix(newMessageID("nobody"), "@localhost"))
}
