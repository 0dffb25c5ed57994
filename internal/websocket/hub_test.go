package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"career-chat-be/internal/pkg/logger"
	"career-chat-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_DeliversToEveryConnectionOfUser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run(ctx)

	userID, otherID := uuid.New(), uuid.New()
	phone := &Client{Hub: hub, UserID: userID, Send: make(chan []byte, 4)}
	laptop := &Client{Hub: hub, UserID: userID, Send: make(chan []byte, 4)}
	other := &Client{Hub: hub, UserID: otherID, Send: make(chan []byte, 4)}
	for _, c := range []*Client{phone, laptop, other} {
		require.True(t, hub.Register(c))
	}
	require.Eventually(t, func() bool { return hub.ConnectedClients(userID) == 2 }, time.Second, 5*time.Millisecond)

	hub.Send(userID, events.Wrap(events.New("CHAT_MESSAGE_CREATED", map[string]interface{}{"content": "hi"})))

	for _, c := range []*Client{phone, laptop} {
		select {
		case frame := <-c.Send:
			var got events.Envelope
			require.NoError(t, json.Unmarshal(frame, &got))
			assert.Equal(t, "CHAT_MESSAGE_CREATED", got.Type)
			assert.Equal(t, "hi", got.Data["content"])
		case <-time.After(time.Second):
			t.Fatal("frame not delivered")
		}
	}
	assert.Empty(t, other.Send)

	hub.Unregister(phone)
	require.Eventually(t, func() bool { return hub.ConnectedClients(userID) == 1 }, time.Second, 5*time.Millisecond)
	_, open := <-phone.Send
	assert.False(t, open)
}

func TestHub_StoppedHubDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run(ctx)

	userID := uuid.New()
	slow := &Client{Hub: hub, UserID: userID, Send: make(chan []byte)}
	require.True(t, hub.Register(slow))
	require.Eventually(t, func() bool { return hub.ConnectedClients(userID) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	// Full buffer after shutdown: the eviction must not hang.
	hub.Send(userID, events.Wrap(events.New("CHAT_MESSAGE_CREATED", nil)))

	returned := make(chan struct{})
	go func() {
		hub.Unregister(slow)
		assert.False(t, hub.Register(&Client{Hub: hub, UserID: userID, Send: make(chan []byte, 1)}))
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("register or unregister blocked on a stopped hub")
	}
}
