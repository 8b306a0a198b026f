package store

import (
	"context"
	"database/sql"
)

// Driver is the database access layer implemented per backend
// (postgres, sqlite).
type Driver interface {
	GetDB() *sql.DB
	Migrate(ctx context.Context) error
	Close() error

	// Conversations
	CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error)
	ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error)
	UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error)
	DeleteConversation(ctx context.Context, delete *DeleteConversation) error

	// Conversation messages
	CreateConversationMessage(ctx context.Context, create *ConversationMessage) (*ConversationMessage, error)
	ListConversationMessages(ctx context.Context, find *FindConversationMessage) ([]*ConversationMessage, error)

	// Documents
	CreateDocument(ctx context.Context, create *Document) (*Document, error)
	ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error)
	UpdateDocument(ctx context.Context, update *UpdateDocument) (*Document, error)
	DeleteDocument(ctx context.Context, delete *DeleteDocument) error

	// Document chunks and vector search
	CreateDocumentChunk(ctx context.Context, create *DocumentChunk) (*DocumentChunk, error)
	DeleteDocumentChunks(ctx context.Context, documentID int32) error
	SearchDocumentChunks(ctx context.Context, opts *ChunkSearchOptions) ([]*DocumentChunkWithScore, error)

	// Notifications
	CreateNotification(ctx context.Context, create *Notification) (*Notification, error)
	ListNotifications(ctx context.Context, find *FindNotification) ([]*Notification, error)
	UpdateNotification(ctx context.Context, update *UpdateNotification) (*Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID int32, readTs int64) error
}
