// Package service implements the application services between the chat
// session layer and the store: conversation persistence, the document
// catalog with its ingest pipeline, RAG completion and notifications.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/ragdesk/chat"
	"github.com/hrygo/ragdesk/store"
)

// ErrConversationNotFound is returned when no conversation matches the UID.
var ErrConversationNotFound = errors.New("conversation not found")

const defaultConversationTitle = "New conversation"

// conversationStore is the slice of the store the conversation service needs.
type conversationStore interface {
	CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error)
	ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error)
	UpdateConversation(ctx context.Context, update *store.UpdateConversation) (*store.Conversation, error)
	DeleteConversation(ctx context.Context, delete *store.DeleteConversation) error
	CreateConversationMessage(ctx context.Context, create *store.ConversationMessage) (*store.ConversationMessage, error)
	ListConversationMessages(ctx context.Context, find *store.FindConversationMessage) ([]*store.ConversationMessage, error)
}

// ConversationService persists conversations and their messages. It is the
// chat dispatcher's ConversationService implementation; conversation IDs
// exposed upward are the store UIDs.
type ConversationService struct {
	store  conversationStore
	logger *slog.Logger
}

func NewConversationService(st conversationStore, logger *slog.Logger) *ConversationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversationService{store: st, logger: logger}
}

// Create persists a new conversation record and returns its UID.
func (s *ConversationService) Create(ctx context.Context, create *chat.CreateConversation) (string, error) {
	title := create.Title
	if title == "" {
		title = defaultConversationTitle
	}

	now := time.Now().Unix()
	conversation, err := s.store.CreateConversation(ctx, &store.Conversation{
		UID:          shortuuid.New(),
		Title:        title,
		TitleSource:  store.TitleSourceDefault,
		Mode:         string(create.Mode),
		SessionToken: create.SessionToken,
		DocumentIDs:  create.DocumentIDs,
		CreatorID:    create.CreatorID,
		CreatedTs:    now,
		UpdatedTs:    now,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to create conversation")
	}
	return conversation.UID, nil
}

// AppendMessage records one chat message under the conversation.
func (s *ConversationService) AppendMessage(ctx context.Context, conversationID string, msg *chat.Message) error {
	conversation, err := s.getByUID(ctx, conversationID)
	if err != nil {
		return err
	}

	createdTs := time.Now().Unix()
	if msg.Timestamp > 0 {
		createdTs = msg.Timestamp / 1000
	}

	_, err = s.store.CreateConversationMessage(ctx, &store.ConversationMessage{
		ConversationID: conversation.ID,
		Role:           string(msg.Role),
		Content:        msg.Content,
		Sources:        toStoreSources(msg.Sources),
		Metadata:       msg.Metadata,
		CreatedTs:      createdTs,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to append message to conversation %s", conversationID)
	}

	_, err = s.store.UpdateConversation(ctx, &store.UpdateConversation{
		ID:        conversation.ID,
		UpdatedTs: &createdTs,
	})
	if err != nil {
		s.logger.Warn("failed to bump conversation timestamp",
			"conversation", conversationID, "error", err)
	}
	return nil
}

// UpdateAutoTitle installs an AI-generated title. A title the user typed
// themselves is never overwritten.
func (s *ConversationService) UpdateAutoTitle(ctx context.Context, conversationID string, title string) error {
	conversation, err := s.getByUID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conversation.TitleSource == store.TitleSourceUser {
		return nil
	}

	now := time.Now().Unix()
	titleSource := store.TitleSourceAuto
	_, err = s.store.UpdateConversation(ctx, &store.UpdateConversation{
		ID:          conversation.ID,
		Title:       &title,
		TitleSource: &titleSource,
		UpdatedTs:   &now,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to update title of conversation %s", conversationID)
	}
	return nil
}

// UpdateTitle renames a conversation on the user's behalf. User titles win
// over any later auto title.
func (s *ConversationService) UpdateTitle(ctx context.Context, conversationID string, title string) error {
	conversation, err := s.getByUID(ctx, conversationID)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	titleSource := store.TitleSourceUser
	_, err = s.store.UpdateConversation(ctx, &store.UpdateConversation{
		ID:          conversation.ID,
		Title:       &title,
		TitleSource: &titleSource,
		UpdatedTs:   &now,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to rename conversation %s", conversationID)
	}
	return nil
}

// ListRecent returns the creator's conversations, most recently updated
// first, with message counts populated.
func (s *ConversationService) ListRecent(ctx context.Context, creatorID int32, limit int) ([]*store.Conversation, error) {
	find := &store.FindConversation{CreatorID: &creatorID}
	if limit > 0 {
		find.Limit = &limit
	}
	conversations, err := s.store.ListConversations(ctx, find)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversations")
	}
	return conversations, nil
}

// Get returns a single conversation by UID.
func (s *ConversationService) Get(ctx context.Context, conversationID string) (*store.Conversation, error) {
	return s.getByUID(ctx, conversationID)
}

// GetMessages loads the conversation history in chronological order,
// converted back to chat messages.
func (s *ConversationService) GetMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	conversation, err := s.getByUID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.ListConversationMessages(ctx, &store.FindConversationMessage{
		ConversationID: &conversation.ID,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list messages of conversation %s", conversationID)
	}

	messages := make([]chat.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, chat.Message{
			ID:        uuid.NewString(),
			Role:      chat.Role(row.Role),
			Content:   row.Content,
			Timestamp: row.CreatedTs * 1000,
			Sources:   fromStoreSources(row.Sources),
			Metadata:  row.Metadata,
		})
	}
	return messages, nil
}

// Delete removes a conversation and its messages.
func (s *ConversationService) Delete(ctx context.Context, conversationID string) error {
	conversation, err := s.getByUID(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteConversation(ctx, &store.DeleteConversation{ID: conversation.ID}); err != nil {
		return errors.Wrapf(err, "failed to delete conversation %s", conversationID)
	}
	return nil
}

func (s *ConversationService) getByUID(ctx context.Context, uid string) (*store.Conversation, error) {
	conversations, err := s.store.ListConversations(ctx, &store.FindConversation{UID: &uid})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find conversation %s", uid)
	}
	if len(conversations) == 0 {
		return nil, ErrConversationNotFound
	}
	return conversations[0], nil
}

func toStoreSources(sources []chat.Source) []store.MessageSource {
	if len(sources) == 0 {
		return nil
	}
	out := make([]store.MessageSource, 0, len(sources))
	for _, src := range sources {
		out = append(out, store.MessageSource{
			DocumentID: src.DocumentID,
			Title:      src.Title,
			Snippet:    src.Snippet,
			Score:      src.Score,
		})
	}
	return out
}

func fromStoreSources(sources []store.MessageSource) []chat.Source {
	if len(sources) == 0 {
		return nil
	}
	out := make([]chat.Source, 0, len(sources))
	for _, src := range sources {
		out = append(out, chat.Source{
			DocumentID: src.DocumentID,
			Title:      src.Title,
			Snippet:    src.Snippet,
			Score:      src.Score,
		})
	}
	return out
}
