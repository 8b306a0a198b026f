package store

// TitleSource indicates how the conversation title was created.
// - "default": truncated first message
// - "auto": AI-generated title based on the opening exchange
// - "user": user-provided title (manual edit)
type TitleSource string

const (
	TitleSourceDefault TitleSource = "default"
	TitleSourceAuto    TitleSource = "auto"
	TitleSourceUser    TitleSource = "user"
)

// Conversation is a persisted chat conversation. DocumentIDs holds the
// document UIDs the conversation was grounded on (empty for general mode).
type Conversation struct {
	UID          string
	Title        string
	TitleSource  TitleSource
	Mode         string // "general" or "grounded"
	SessionToken string
	DocumentIDs  []string // stored as a JSON column
	CreatedTs    int64
	UpdatedTs    int64
	ID           int32
	CreatorID    int32
	MessageCount int32 // populated by ListConversations with a JOIN
}

type FindConversation struct {
	ID           *int32
	UID          *string
	CreatorID    *int32
	SessionToken *string
	Limit        *int
}

type UpdateConversation struct {
	Title       *string
	TitleSource *TitleSource
	UpdatedTs   *int64
	ID          int32
}

type DeleteConversation struct {
	ID int32
}
