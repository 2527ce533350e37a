package ai

import "time"

const (
	// maxHistoryMessages bounds the conversation window handed to the
	// LLM: 20 messages = 10 user/assistant exchanges.
	maxHistoryMessages = 20
	// conversationTimeout drops the window after 30 minutes of
	// inactivity. Expired history is discarded, not archived.
	conversationTimeout = 30 * time.Minute
)

// ConversationMemory is a bounded sliding window of prior turns for one
// chat. Not safe for concurrent use; the owning Session serializes
// access.
type ConversationMemory struct {
	turns        []Turn
	lastActivity time.Time
}

// History returns the current window, or nil when the conversation has
// expired. Accessing an expired conversation clears it.
func (m *ConversationMemory) History(now time.Time) []Turn {
	if !m.lastActivity.IsZero() && now.Sub(m.lastActivity) > conversationTimeout {
		m.turns = nil
		m.lastActivity = time.Time{}
		return nil
	}
	return m.turns
}

// Append records one user/assistant exchange and slides the window,
// dropping the oldest messages beyond the cap.
func (m *ConversationMemory) Append(now time.Time, userMessage, assistantMessage string) {
	m.turns = append(m.turns,
		Turn{Role: "user", Content: userMessage},
		Turn{Role: "assistant", Content: assistantMessage},
	)
	if len(m.turns) > maxHistoryMessages {
		m.turns = m.turns[len(m.turns)-maxHistoryMessages:]
	}
	m.lastActivity = now
}

// Len reports the number of retained messages.
func (m *ConversationMemory) Len() int {
	return len(m.turns)
}
