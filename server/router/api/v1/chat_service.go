package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/ragdesk/chat"
	"github.com/hrygo/ragdesk/service"
	"github.com/hrygo/ragdesk/store"
)

// ChatService exposes the live chat session operations: sending messages,
// switching mode, editing the document selection and conversation lifecycle.
type ChatService struct {
	Registry      *chat.Registry
	Dispatcher    *chat.Dispatcher
	Conversations *service.ConversationService
	Catalog       *service.Catalog
	Notifications *service.NotificationService
}

func (s *ChatService) Register(g *echo.Group) {
	g.GET("/chat/:token", s.GetSession)
	g.POST("/chat/:token/messages", s.SendMessage)
	g.PUT("/chat/:token/mode", s.SetMode)
	g.PUT("/chat/:token/documents", s.SetDocuments)
	g.POST("/chat/:token/documents/:id", s.AddDocument)
	g.DELETE("/chat/:token/documents/:id", s.RemoveDocument)
	g.POST("/chat/:token/new", s.NewConversation)
	g.POST("/chat/:token/resume", s.ResumeConversation)
	g.DELETE("/chat/:token", s.EndSession)
}

type sessionState struct {
	Token             string             `json:"token"`
	Mode              chat.Mode          `json:"mode"`
	SelectedDocuments []chat.DocumentRef `json:"selectedDocuments"`
	ConversationID    string             `json:"conversationId,omitempty"`
	Messages          []chat.Message     `json:"messages"`
}

func sessionStateOf(sess *chat.Session) sessionState {
	return sessionState{
		Token:             sess.Token(),
		Mode:              sess.Mode(),
		SelectedDocuments: sess.SelectedDocuments(),
		ConversationID:    sess.ConversationID(),
		Messages:          sess.ActiveMessages(),
	}
}

func (s *ChatService) session(c echo.Context) *chat.Session {
	return s.Registry.GetOrCreate(c.Param("token"), currentUserID(c))
}

// GetSession returns the live session state for the dashboard to render.
func (s *ChatService) GetSession(c echo.Context) error {
	return c.JSON(http.StatusOK, sessionStateOf(s.session(c)))
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

type sendMessageResponse struct {
	UserMessage      chat.Message `json:"userMessage"`
	AssistantMessage chat.Message `json:"assistantMessage"`
	ConversationID   string       `json:"conversationId,omitempty"`
}

// SendMessage runs one completion round-trip for the session.
func (s *ChatService) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if req.Message == "" {
		return badRequest(c, "message cannot be empty")
	}

	sess := s.session(c)
	sess.Touch()

	exchange, err := s.Dispatcher.Send(c.Request().Context(), sess, req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrStaleResponse) {
			// The user already moved on; nothing to render.
			return c.NoContent(http.StatusNoContent)
		}
		s.notifyChatError(c, sess, err)
		return errorJSON(c, http.StatusBadGateway, "completion failed")
	}

	return c.JSON(http.StatusOK, sendMessageResponse{
		UserMessage:      exchange.UserMessage,
		AssistantMessage: exchange.AssistantMessage,
		ConversationID:   exchange.ConversationID,
	})
}

type setModeRequest struct {
	Mode chat.Mode `json:"mode"`
}

// SetMode switches the session between general and grounded chat.
func (s *ChatService) SetMode(c echo.Context) error {
	var req setModeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if req.Mode != chat.ModeGeneral && req.Mode != chat.ModeGrounded {
		return badRequest(c, "mode must be general or grounded")
	}

	sess := s.session(c)
	sess.Touch()
	if !sess.SetMode(req.Mode) {
		return errorJSON(c, http.StatusConflict, "grounded mode requires at least one selected document")
	}
	return c.JSON(http.StatusOK, sessionStateOf(sess))
}

type setDocumentsRequest struct {
	DocumentIDs []string `json:"documentIds"`
}

// SetDocuments replaces the session's document selection. An empty list
// switches the session back to general mode.
func (s *ChatService) SetDocuments(c echo.Context) error {
	var req setDocumentsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "malformed request body")
	}

	refs, err := s.resolveRefs(c, req.DocumentIDs)
	if err != nil {
		return badRequest(c, err.Error())
	}

	sess := s.session(c)
	sess.Touch()
	if !sess.SetSelectedDocuments(refs) {
		return errorJSON(c, http.StatusConflict, "selection rejected: at most 3 distinct embedded documents")
	}
	return c.JSON(http.StatusOK, sessionStateOf(sess))
}

// AddDocument adds one document to the selection.
func (s *ChatService) AddDocument(c echo.Context) error {
	refs, err := s.resolveRefs(c, []string{c.Param("id")})
	if err != nil {
		return badRequest(c, err.Error())
	}

	sess := s.session(c)
	sess.Touch()
	if !sess.AddDocument(refs[0]) {
		return errorJSON(c, http.StatusConflict, "selection is full: at most 3 documents")
	}
	return c.JSON(http.StatusOK, sessionStateOf(sess))
}

// RemoveDocument removes one document from the selection.
func (s *ChatService) RemoveDocument(c echo.Context) error {
	sess := s.session(c)
	sess.Touch()
	if !sess.RemoveDocument(c.Param("id")) {
		return errorJSON(c, http.StatusNotFound, "document is not selected")
	}
	return c.JSON(http.StatusOK, sessionStateOf(sess))
}

// NewConversation clears the active mode's thread and detaches the session
// from its persisted conversation.
func (s *ChatService) NewConversation(c echo.Context) error {
	sess := s.session(c)
	sess.Touch()
	sess.StartNewConversation()
	return c.JSON(http.StatusOK, sessionStateOf(sess))
}

type resumeRequest struct {
	ConversationID string `json:"conversationId"`
}

// ResumeConversation loads a persisted conversation into the session,
// restoring its mode, selection and history.
func (s *ChatService) ResumeConversation(c echo.Context) error {
	var req resumeRequest
	if err := c.Bind(&req); err != nil || req.ConversationID == "" {
		return badRequest(c, "conversationId is required")
	}

	ctx := c.Request().Context()
	conversation, err := s.Conversations.Get(ctx, req.ConversationID)
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			return errorJSON(c, http.StatusNotFound, "conversation not found")
		}
		return errorJSON(c, http.StatusInternalServerError, "failed to load conversation")
	}

	messages, err := s.Conversations.GetMessages(ctx, req.ConversationID)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to load conversation history")
	}

	refs, err := s.resolveRefs(c, conversation.DocumentIDs)
	if err != nil {
		return errorJSON(c, http.StatusConflict, "a grounding document of this conversation is gone")
	}

	sess := s.session(c)
	sess.Touch()
	if !sess.SelectExistingConversation(conversation.UID, chat.Mode(conversation.Mode), refs, messages) {
		return errorJSON(c, http.StatusConflict, "conversation snapshot is not resumable")
	}
	return c.JSON(http.StatusOK, sessionStateOf(sess))
}

// EndSession drops the in-memory session. Persisted conversations survive.
func (s *ChatService) EndSession(c echo.Context) error {
	s.Registry.Terminate(c.Param("token"))
	return c.NoContent(http.StatusNoContent)
}

// resolveRefs maps document UIDs to selection candidates, rejecting unknown
// and not-yet-embedded documents.
func (s *ChatService) resolveRefs(c echo.Context, ids []string) ([]chat.DocumentRef, error) {
	ctx := c.Request().Context()
	refs := make([]chat.DocumentRef, 0, len(ids))
	for _, id := range ids {
		document, err := s.Catalog.Get(ctx, id)
		if err != nil {
			return nil, errors.Errorf("unknown document %s", id)
		}
		if !document.HasEmbedding {
			return nil, errors.Errorf("document %s is still being processed", id)
		}
		refs = append(refs, chat.DocumentRef{
			ID:            document.UID,
			Title:         document.Title,
			ContentType:   document.ContentType,
			FileSizeBytes: document.FileSizeBytes,
			WordCount:     document.WordCount,
			HasEmbedding:  document.HasEmbedding,
			UploadedTs:    document.CreatedTs,
		})
	}
	return refs, nil
}

func (s *ChatService) notifyChatError(c echo.Context, sess *chat.Session, err error) {
	if s.Notifications == nil {
		return
	}
	notifyErr := s.Notifications.Notify(c.Request().Context(), sess.CreatorID(),
		store.NotificationChatError, "Chat failed", err.Error())
	if notifyErr != nil {
		slog.Warn("failed to record chat error notification", "error", notifyErr)
	}
}
