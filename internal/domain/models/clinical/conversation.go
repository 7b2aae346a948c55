package clinical

import "time"

// Conversation role constants
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationMessage is one turn in the contextual assistant's rolling
// history. Messages are appended in question/answer pairs after each
// successful exchange and removed only by an explicit history clear.
type ConversationMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
