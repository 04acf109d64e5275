// Package chat defines the role-tagged message type shared by the
// conversation store and the completion adapter.
package chat

// Utterance roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged line of conversational history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
