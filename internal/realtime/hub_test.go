package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h
}

func fakeConn(id string) *Connection {
	return &Connection{ID: id, Send: make(chan []byte, sendBuffer)}
}

func recv(t *testing.T, conn *Connection) map[string]interface{} {
	t.Helper()
	select {
	case data := <-conn.Send:
		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &out))
		return out
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func assertSilent(t *testing.T, conn *Connection) {
	t.Helper()
	select {
	case data := <-conn.Send:
		t.Fatalf("unexpected event: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDeliversToTopicAndOperators(t *testing.T) {
	h := startHub(t)

	patient := fakeConn("patient")
	other := fakeConn("other")
	operator := fakeConn("operator")
	for _, c := range []*Connection{patient, other, operator} {
		h.Register(c)
	}
	h.Subscribe(patient, "CONV-1A2B3C4D")
	h.Subscribe(other, "CONV-FFFFFFFF")
	h.Subscribe(operator, AllConversations)

	h.PublishMessage(domain.Message{ID: 7, ConversationID: "CONV-1A2B3C4D", Text: "hello", SenderType: domain.SenderDoctor})

	got := recv(t, patient)
	assert.Equal(t, TypeMessage, got["type"])
	assert.Equal(t, "CONV-1A2B3C4D", got["conversation_id"])
	assert.Equal(t, "hello", got["message"].(map[string]interface{})["message"])

	assert.Equal(t, TypeMessage, recv(t, operator)["type"])
	assertSilent(t, other)
}

func TestHubPublishCleared(t *testing.T) {
	h := startHub(t)
	c := fakeConn("c1")
	h.Register(c)
	h.Subscribe(c, "CONV-1A2B3C4D")

	h.PublishCleared("CONV-1A2B3C4D")

	got := recv(t, c)
	assert.Equal(t, TypeConversationCleared, got["type"])
}

func TestHubResubscribeMovesConnection(t *testing.T) {
	h := startHub(t)
	c := fakeConn("c1")
	h.Register(c)
	h.Subscribe(c, "CONV-AAAAAAAA")
	h.Subscribe(c, "CONV-BBBBBBBB")

	h.PublishCleared("CONV-AAAAAAAA")
	assertSilent(t, c)

	h.PublishCleared("CONV-BBBBBBBB")
	assert.Equal(t, "CONV-BBBBBBBB", recv(t, c)["conversation_id"])
}

func TestHubUnregisterClosesSend(t *testing.T) {
	h := startHub(t)
	c := fakeConn("c1")
	h.Register(c)
	h.Subscribe(c, "CONV-AAAAAAAA")
	require.Equal(t, 1, h.ConnectionCount())

	h.Unregister(c)

	require.Eventually(t, func() bool { return h.ConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
	_, ok := <-c.Send
	assert.False(t, ok)
	assert.ErrorIs(t, h.SendJSONToConnection(c, BaseMessage{Type: TypeSubscribed}), ErrNotConnected)
}

func TestHubRegisterAfterShutdown(t *testing.T) {
	h := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	c := fakeConn("late")
	h.Register(c)
	_, ok := <-c.Send
	assert.False(t, ok)
	assert.Equal(t, 0, h.ConnectionCount())

	// Must not block once the hub has stopped.
	h.Unregister(c)
}

func TestSendJSONToConnectionBufferFull(t *testing.T) {
	h := startHub(t)
	c := &Connection{ID: "tiny", Send: make(chan []byte, 1)}
	h.Register(c)

	require.NoError(t, h.SendJSONToConnection(c, BaseMessage{Type: TypeSubscribed}))
	assert.ErrorIs(t, h.SendJSONToConnection(c, BaseMessage{Type: TypeSubscribed}), ErrBufferFull)
}
