// Package conversation holds the ordered messages sent to a provider.
package conversation

// Role labels the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is an append-only message list. Insertion order is
// conversation order.
type Conversation struct {
	messages []Message
}

func New(messages ...Message) *Conversation {
	conversation := &Conversation{}
	for _, message := range messages {
		conversation.Append(message.Role, message.Content)
	}
	return conversation
}

func (c *Conversation) Append(role Role, content string) {
	c.messages = append(c.messages, Message{Role: role, Content: content})
}

// Messages returns a copy of the accumulated messages.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int { return len(c.messages) }
