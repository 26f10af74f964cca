package chat

import "strings"

// Keyword activation scopes.
const (
	ScopeCurrentTurn = "currentTurn"
	ScopeHistory     = "history"
)

// keywordHistoryWindow is how many messages (including the current one) the
// history scope inspects.
const keywordHistoryWindow = 5

// MemoryKeyword is a user-configured term/details pair injected into the
// prompt when its activation condition matches.
type MemoryKeyword struct {
	ID              string `json:"id"`
	Term            string `json:"term"`
	Details         string `json:"details"`
	PersonaID       string `json:"personaId,omitempty"`
	Enabled         bool   `json:"enabled"`
	TriggerSource   string `json:"triggerSource"` // user, ai or both
	ActivationScope string `json:"activationScope"`
	Priority        int    `json:"priority"`
}

// ActiveKeywords filters keywords down to those whose activation condition
// matches the current message or the recent history window.
func ActiveKeywords(keywords []MemoryKeyword, history []Message, current Message) []MemoryKeyword {
	var active []MemoryKeyword
	for _, kw := range keywords {
		if !kw.Enabled || kw.Term == "" {
			continue
		}
		switch kw.ActivationScope {
		case ScopeCurrentTurn:
			if strings.Contains(current.Content, kw.Term) {
				active = append(active, kw)
			}
		case ScopeHistory:
			window := append(append([]Message{}, history...), current)
			if len(window) > keywordHistoryWindow {
				window = window[len(window)-keywordHistoryWindow:]
			}
			for _, m := range window {
				if strings.Contains(m.Content, kw.Term) {
					active = append(active, kw)
					break
				}
			}
		}
	}
	return active
}
