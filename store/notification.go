package store

// NotificationKind classifies dashboard notifications.
type NotificationKind string

const (
	// NotificationDocumentReady fires when a document ingest finished and the
	// document became selectable for grounded chat.
	NotificationDocumentReady NotificationKind = "document_ready"
	// NotificationChatError fires when a completion round-trip failed.
	NotificationChatError NotificationKind = "chat_error"
)

// Notification is one entry in the dashboard's notification feed.
type Notification struct {
	UID       string
	Kind      NotificationKind
	Title     string
	Body      string
	ReadTs    *int64 // nil while unread
	CreatedTs int64
	ID        int32
	UserID    int32
}

type FindNotification struct {
	UserID     *int32
	UnreadOnly bool
	Limit      *int
}

type UpdateNotification struct {
	ReadTs *int64
	ID     int32
}
