package genai

// Role constants for conversation turns. The Gemini API uses "model"
// where other providers use "assistant".
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one turn of a conversation sent to the inference service.
// Parts are raw strings: plain text passes through as a text part, and a
// string of the form "data:<mime>;base64,<payload>" is converted by the
// client into an inline image part. Image parts only ever appear on user
// turns in this system.
type Message struct {
	Role  string
	Parts []string
}

// UserTurn wraps a set of parts as a single user message. Callers with a
// flat content list (one implicit user turn) go through here.
func UserTurn(parts ...string) []Message {
	return []Message{{Role: RoleUser, Parts: parts}}
}
