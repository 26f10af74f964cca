package chat

import "time"

// Roles a chat message can carry.
const (
	RoleUser   = "user"
	RoleModel  = "model"
	RoleSystem = "system"
)

// Message is one entry in a persona's conversation history. History is
// append-only; the chat loop only ever reads a bounded suffix.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	PersonaID string    `json:"personaId,omitempty"`
}

// hasBody reports whether the message contributes anything to a prompt.
func (m Message) hasBody() bool {
	return trimmed(m.Content) != "" || m.ImageURL != ""
}

// promptHistory filters history down to user/model messages with content and
// keeps only the most recent max entries.
func promptHistory(history []Message, max int) []Message {
	filtered := make([]Message, 0, len(history))
	for _, m := range history {
		if (m.Role == RoleUser || m.Role == RoleModel) && m.hasBody() {
			filtered = append(filtered, m)
		}
	}
	if len(filtered) > max {
		filtered = filtered[len(filtered)-max:]
	}
	return filtered
}
