package domain

import "time"

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one immutable entry in a project's chat transcript.
// The ascending log doubles as the context fed back to the assistant.
type ConversationTurn struct {
	ID               string    `json:"id,omitempty"`
	ProjectID        string    `json:"project_id,omitempty"`
	Role             string    `json:"role"`
	Content          string    `json:"content"`
	ActionsPerformed []string  `json:"actions_performed,omitempty"`
	CreatedAt        time.Time `json:"created_at,omitempty"`
}
