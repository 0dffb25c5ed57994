package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"

	// DefaultSessionTitle marks a session whose title has not been derived yet.
	DefaultSessionTitle = "New Chat"

	MaxMessageLength = 2000
	MaxTitleLength   = 255

	// FallbackTitleLength is the rune budget for titles cut from the user's message.
	FallbackTitleLength = 40

	FallbackAssistantMessage = "⚠️ **Service unavailable.** Sorry, I'm having trouble connecting to my AI service right now. " +
		"Your message was saved, please try again in a moment."
)

// Chat event types published after state changes.
const (
	EventChatMessageCreated      = "CHAT_MESSAGE_CREATED"
	EventChatSessionTitleUpdated = "CHAT_SESSION_TITLE_UPDATED"
	EventChatSessionDeleted      = "CHAT_SESSION_DELETED"
	EventUserRegistered          = "USER_REGISTERED"
	EventUserLogin               = "USER_LOGIN"
)
