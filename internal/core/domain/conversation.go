package domain

import "time"

// Role identifies the author of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one role-tagged message of a chat history.
type ConversationTurn struct {
	Role    Role
	Content string
}

// Conversation is a chat session whose retrieval is scoped to ScopeID.
type Conversation struct {
	ID        string
	Title     string
	ScopeID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is a persisted conversation turn. Assistant messages carry the
// sources they cited and the answer confidence.
type Message struct {
	ID             string
	ConversationID string
	Role           Role
	Content        string
	Sources        []Metadata
	Confidence     float64
	CreatedAt      time.Time
}

// Turn converts the message to a conversation turn.
func (m Message) Turn() ConversationTurn {
	return ConversationTurn{Role: m.Role, Content: m.Content}
}

// ChatReply is the outcome of one chat turn.
type ChatReply struct {
	// Conversation is the session the turn belongs to.
	Conversation *Conversation

	// UserMessage is the persisted question. Always saved, even on failure.
	UserMessage *Message

	// AssistantMessage is the persisted reply.
	AssistantMessage *Message

	// Answer is the composed answer behind AssistantMessage.
	Answer *ComposedAnswer

	// RetrievalDegraded is true when retrieval failed and the answer was
	// composed without knowledge-base context.
	RetrievalDegraded bool

	// GenerationFailed is true when the assistant message is the fallback text.
	GenerationFailed bool
}
