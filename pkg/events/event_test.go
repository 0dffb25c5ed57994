package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_WireShape(t *testing.T) {
	evt := New("CHAT_SESSION_DELETED", map[string]interface{}{"chat_session_id": "abc"})

	raw, err := json.Marshal(Wrap(evt))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "CHAT_SESSION_DELETED", decoded["type"])
	assert.Equal(t, map[string]interface{}{"chat_session_id": "abc"}, decoded["data"])
	assert.Contains(t, decoded, "occurred_at")

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	back := env.Event()
	assert.Equal(t, evt.EventType(), back.EventType())
	assert.True(t, evt.Timestamp().Equal(back.Timestamp()))
}
