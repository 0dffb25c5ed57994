package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "chat.events.CHAT_MESSAGE_CREATED", Subject("CHAT_MESSAGE_CREATED"))
}
