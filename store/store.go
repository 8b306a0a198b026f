package store

import (
	"context"

	"github.com/hrygo/ragdesk/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

// Migrate brings the schema up to date.
func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error) {
	return s.driver.CreateConversation(ctx, create)
}

func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	return s.driver.ListConversations(ctx, find)
}

func (s *Store) UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error) {
	return s.driver.UpdateConversation(ctx, update)
}

func (s *Store) DeleteConversation(ctx context.Context, delete *DeleteConversation) error {
	return s.driver.DeleteConversation(ctx, delete)
}

func (s *Store) CreateConversationMessage(ctx context.Context, create *ConversationMessage) (*ConversationMessage, error) {
	return s.driver.CreateConversationMessage(ctx, create)
}

func (s *Store) ListConversationMessages(ctx context.Context, find *FindConversationMessage) ([]*ConversationMessage, error) {
	return s.driver.ListConversationMessages(ctx, find)
}

func (s *Store) CreateDocument(ctx context.Context, create *Document) (*Document, error) {
	return s.driver.CreateDocument(ctx, create)
}

func (s *Store) ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error) {
	return s.driver.ListDocuments(ctx, find)
}

func (s *Store) UpdateDocument(ctx context.Context, update *UpdateDocument) (*Document, error) {
	return s.driver.UpdateDocument(ctx, update)
}

func (s *Store) DeleteDocument(ctx context.Context, delete *DeleteDocument) error {
	return s.driver.DeleteDocument(ctx, delete)
}

func (s *Store) CreateDocumentChunk(ctx context.Context, create *DocumentChunk) (*DocumentChunk, error) {
	return s.driver.CreateDocumentChunk(ctx, create)
}

func (s *Store) DeleteDocumentChunks(ctx context.Context, documentID int32) error {
	return s.driver.DeleteDocumentChunks(ctx, documentID)
}

func (s *Store) SearchDocumentChunks(ctx context.Context, opts *ChunkSearchOptions) ([]*DocumentChunkWithScore, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return s.driver.SearchDocumentChunks(ctx, opts)
}

func (s *Store) CreateNotification(ctx context.Context, create *Notification) (*Notification, error) {
	return s.driver.CreateNotification(ctx, create)
}

func (s *Store) ListNotifications(ctx context.Context, find *FindNotification) ([]*Notification, error) {
	return s.driver.ListNotifications(ctx, find)
}

func (s *Store) UpdateNotification(ctx context.Context, update *UpdateNotification) (*Notification, error) {
	return s.driver.UpdateNotification(ctx, update)
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID int32, readTs int64) error {
	return s.driver.MarkAllNotificationsRead(ctx, userID, readTs)
}
