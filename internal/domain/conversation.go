package domain

// Message is a single persisted conversation message. Messages are unique per
// (ConversationID, Timestamp) and are never mutated once written.
type Message struct {
	ConversationID string
	Timestamp      string
	Text           string
}

// HistoryEntry is the caller-facing projection of a Message.
type HistoryEntry struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// Permission ties a user to a conversation.
type Permission struct {
	UserID         string
	ConversationID string
	Active         bool
}
