// Package chat implements the client-session state model for the RAG chat
// dashboard: chat mode selection, the bounded document selection, per-mode
// message lists and conversation lifecycle bookkeeping.
package chat

// Mode determines which message list and which completion path is active.
type Mode string

const (
	// ModeGeneral is a free-form conversation with no document grounding.
	ModeGeneral Mode = "general"
	// ModeGrounded is a conversation scoped to the selected documents.
	ModeGrounded Mode = "grounded"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DocumentRef is a reference to a catalog document. The session only caches
// display fields; the catalog owns the document lifecycle.
type DocumentRef struct {
	ID            string
	Title         string
	ContentType   string
	FileSizeBytes int64
	WordCount     int32
	Summary       string
	HasEmbedding  bool
	UploadedTs    int64
}

// Source is a citation attached to an assistant message in grounded mode.
type Source struct {
	DocumentID string
	Title      string
	Snippet    string
	Score      float32 // similarity in [0, 1], higher is closer
}

// Message is a single chat message. Messages are appended, never edited.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp int64 // unix milliseconds, caller-supplied
	Sources   []Source
	Metadata  map[string]string
}
