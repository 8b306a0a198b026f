package store

// MessageSource is a citation recorded with an assistant message.
type MessageSource struct {
	DocumentID string  `json:"documentId"`
	Title      string  `json:"title"`
	Snippet    string  `json:"snippet"`
	Score      float32 `json:"score"`
}

// ConversationMessage is a persisted chat message. Messages are append-only;
// only the parent conversation's title is ever edited.
type ConversationMessage struct {
	ID             int64
	ConversationID int32
	Role           string // "user" or "assistant"
	Content        string
	Sources        []MessageSource   // JSON column, nil for user messages
	Metadata       map[string]string // JSON column, optional
	CreatedTs      int64
}

type FindConversationMessage struct {
	ConversationID *int32
	Limit          *int
}
