package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrStaleResponse is returned when a completion arrives after the session's
// mode, conversation or selection changed. The response is discarded.
var ErrStaleResponse = errors.New("completion response is stale")

// CompletionRequest is one completion round-trip. History excludes the new
// message; DocumentIDs is empty in general mode.
type CompletionRequest struct {
	Message     string
	History     []Message
	Mode        Mode
	DocumentIDs []string
}

// CompletionResult is the generated response plus its citations.
type CompletionResult struct {
	Content string
	Sources []Source
}

// CompletionService generates a response for a chat message.
type CompletionService interface {
	Send(ctx context.Context, req *CompletionRequest) (*CompletionResult, error)
}

// CreateConversation carries the fields needed to persist a new conversation
// record on the first message exchange.
type CreateConversation struct {
	SessionToken string
	CreatorID    int32
	Mode         Mode
	DocumentIDs  []string
	Title        string
}

// ConversationService persists conversations and their messages. Failures
// are logged and do not roll back the optimistic session state.
type ConversationService interface {
	Create(ctx context.Context, create *CreateConversation) (conversationID string, err error)
	AppendMessage(ctx context.Context, conversationID string, msg *Message) error
	UpdateAutoTitle(ctx context.Context, conversationID string, title string) error
}

// Titler suggests a conversation title from the opening exchange.
type Titler interface {
	SuggestTitle(ctx context.Context, messages []Message) (string, error)
}

// Recorder receives chat traffic metrics.
type Recorder interface {
	RecordExchange(mode Mode, duration time.Duration, err error)
	RecordStaleDrop(mode Mode)
}

type nopRecorder struct{}

func (nopRecorder) RecordExchange(Mode, time.Duration, error) {}
func (nopRecorder) RecordStaleDrop(Mode)                      {}

// Exchange is the result of one dispatched message: the optimistically
// appended user message, the applied assistant message and the conversation
// the pair was recorded under.
type Exchange struct {
	UserMessage      Message
	AssistantMessage Message
	ConversationID   string
}

// Dispatcher runs the completion round-trip for a session. The session's own
// mutations are synchronous; the dispatcher owns the asynchronous boundary
// and enforces the stale-response policy: a response whose originating
// context no longer matches the live session is dropped, not applied.
type Dispatcher struct {
	completion    CompletionService
	conversations ConversationService
	titler        Titler
	recorder      Recorder
	logger        *slog.Logger

	// persistTimeout bounds background persistence calls so a slow backend
	// cannot pile up goroutines.
	persistTimeout time.Duration
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTitler enables asynchronous AI title upgrades after the first exchange.
func WithTitler(t Titler) DispatcherOption {
	return func(d *Dispatcher) { d.titler = t }
}

// WithRecorder wires a metrics recorder.
func WithRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) { d.recorder = r }
}

// NewDispatcher creates a dispatcher over the given collaborators.
func NewDispatcher(completion CompletionService, conversations ConversationService, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		completion:     completion,
		conversations:  conversations,
		recorder:       nopRecorder{},
		logger:         logger,
		persistTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send runs one message exchange against the session.
//
// The user message is appended optimistically before the completion call and
// stays in the list even if the call fails; this favors UI responsiveness
// over strict consistency. Persistence (conversation creation, message
// records, title upgrade) happens after the response is applied and never
// blocks the returned exchange.
func (d *Dispatcher) Send(ctx context.Context, sess *Session, content string) (*Exchange, error) {
	snap := sess.ContextSnapshot()
	history := sess.Messages(snap.Mode)

	userMsg := Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
	sess.AppendMessage(userMsg, snap.Mode)

	start := time.Now()
	result, err := d.completion.Send(ctx, &CompletionRequest{
		Message:     content,
		History:     history,
		Mode:        snap.Mode,
		DocumentIDs: snap.DocumentIDs,
	})
	d.recorder.RecordExchange(snap.Mode, time.Since(start), err)
	if err != nil {
		return nil, errors.Wrap(err, "completion failed")
	}

	// Stale check: the user may have switched mode or documents while the
	// request was in flight. The session already reflects the newer intent,
	// so the response is dropped.
	if !sess.Matches(snap) {
		d.recorder.RecordStaleDrop(snap.Mode)
		d.logger.Info("discarding stale completion response",
			"session_token", sess.Token(),
			"mode", snap.Mode,
			"conversation_id", snap.ConversationID,
		)
		return nil, ErrStaleResponse
	}

	assistantMsg := Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   result.Content,
		Timestamp: time.Now().UnixMilli(),
		Sources:   result.Sources,
	}
	sess.AppendMessage(assistantMsg, snap.Mode)

	conversationID := d.ensureConversation(ctx, sess, snap, userMsg)
	if conversationID != "" {
		d.persistExchange(conversationID, userMsg, assistantMsg)
		if d.titler != nil && snap.ConversationID == "" {
			go d.upgradeTitle(conversationID, []Message{userMsg, assistantMsg})
		}
	}

	return &Exchange{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		ConversationID:   conversationID,
	}, nil
}

// ensureConversation returns the conversation id the exchange belongs to,
// creating the backend record on the first exchange of a live conversation.
// Creation failure is logged and the exchange proceeds unpersisted.
func (d *Dispatcher) ensureConversation(ctx context.Context, sess *Session, snap ContextSnapshot, first Message) string {
	if snap.ConversationID != "" {
		return snap.ConversationID
	}

	id, err := d.conversations.Create(ctx, &CreateConversation{
		SessionToken: sess.Token(),
		CreatorID:    sess.CreatorID(),
		Mode:         snap.Mode,
		DocumentIDs:  snap.DocumentIDs,
		Title:        defaultTitle(first.Content),
	})
	if err != nil {
		d.logger.Warn("failed to create conversation, exchange kept in memory only",
			"session_token", sess.Token(),
			"error", err,
		)
		return ""
	}

	// The session may have moved on while the create was in flight.
	if !sess.Matches(snap) {
		d.logger.Info("conversation created for stale context, not attaching",
			"session_token", sess.Token(),
			"conversation_id", id,
		)
		return id
	}
	sess.SetConversationID(id)
	return id
}

// persistExchange records both messages in the background.
func (d *Dispatcher) persistExchange(conversationID string, userMsg, assistantMsg Message) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.persistTimeout)
		defer cancel()

		for _, msg := range []Message{userMsg, assistantMsg} {
			if err := d.conversations.AppendMessage(ctx, conversationID, &msg); err != nil {
				d.logger.Warn("failed to persist chat message",
					"conversation_id", conversationID,
					"role", msg.Role,
					"error", err,
				)
			}
		}
	}()
}

// upgradeTitle asks the titler for a better title than the truncated first
// message. Runs after the first exchange only.
func (d *Dispatcher) upgradeTitle(conversationID string, opening []Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.persistTimeout)
	defer cancel()

	title, err := d.titler.SuggestTitle(ctx, opening)
	if err != nil || title == "" {
		d.logger.Debug("title suggestion failed", "conversation_id", conversationID, "error", err)
		return
	}
	if err := d.conversations.UpdateAutoTitle(ctx, conversationID, title); err != nil {
		d.logger.Warn("failed to update conversation title", "conversation_id", conversationID, "error", err)
	}
}

// defaultTitle derives the initial conversation title from the first user
// message. Upgraded asynchronously when a Titler is configured.
func defaultTitle(content string) string {
	const maxRunes = 48
	runes := []rune(content)
	if len(runes) <= maxRunes {
		return content
	}
	return string(runes[:maxRunes]) + "…"
}
