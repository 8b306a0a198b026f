package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/ragdesk/chat"
	"github.com/hrygo/ragdesk/service"
	"github.com/hrygo/ragdesk/store"
)

// ConversationService exposes the persisted conversation history.
type ConversationService struct {
	Conversations *service.ConversationService
}

func (s *ConversationService) Register(g *echo.Group) {
	g.GET("/conversations", s.ListConversations)
	g.GET("/conversations/:id/messages", s.GetMessages)
	g.PATCH("/conversations/:id", s.UpdateConversation)
	g.DELETE("/conversations/:id", s.DeleteConversation)
}

type conversationResponse struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	TitleSource  string   `json:"titleSource"`
	Mode         string   `json:"mode"`
	DocumentIDs  []string `json:"documentIds,omitempty"`
	MessageCount int32    `json:"messageCount"`
	CreatedTs    int64    `json:"createdTs"`
	UpdatedTs    int64    `json:"updatedTs"`
}

func toConversationResponse(c *store.Conversation) conversationResponse {
	return conversationResponse{
		ID:           c.UID,
		Title:        c.Title,
		TitleSource:  string(c.TitleSource),
		Mode:         c.Mode,
		DocumentIDs:  c.DocumentIDs,
		MessageCount: c.MessageCount,
		CreatedTs:    c.CreatedTs,
		UpdatedTs:    c.UpdatedTs,
	}
}

// ListConversations returns the user's conversations, newest first.
func (s *ConversationService) ListConversations(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return badRequest(c, "limit must be a non-negative integer")
		}
		limit = parsed
	}

	conversations, err := s.Conversations.ListRecent(c.Request().Context(), currentUserID(c), limit)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to list conversations")
	}

	response := make([]conversationResponse, 0, len(conversations))
	for _, conversation := range conversations {
		response = append(response, toConversationResponse(conversation))
	}
	return c.JSON(http.StatusOK, response)
}

// GetMessages returns the conversation history in chronological order.
func (s *ConversationService) GetMessages(c echo.Context) error {
	messages, err := s.Conversations.GetMessages(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			return errorJSON(c, http.StatusNotFound, "conversation not found")
		}
		return errorJSON(c, http.StatusInternalServerError, "failed to load messages")
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	return c.JSON(http.StatusOK, messages)
}

type updateConversationRequest struct {
	Title string `json:"title"`
}

// UpdateConversation renames a conversation. The title is recorded as
// user-set and never overwritten by auto titling.
func (s *ConversationService) UpdateConversation(c echo.Context) error {
	var req updateConversationRequest
	if err := c.Bind(&req); err != nil || req.Title == "" {
		return badRequest(c, "title is required")
	}

	err := s.Conversations.UpdateTitle(c.Request().Context(), c.Param("id"), req.Title)
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			return errorJSON(c, http.StatusNotFound, "conversation not found")
		}
		return errorJSON(c, http.StatusInternalServerError, "failed to rename conversation")
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteConversation removes a conversation and its messages.
func (s *ConversationService) DeleteConversation(c echo.Context) error {
	err := s.Conversations.Delete(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			return errorJSON(c, http.StatusNotFound, "conversation not found")
		}
		return errorJSON(c, http.StatusInternalServerError, "failed to delete conversation")
	}
	return c.NoContent(http.StatusNoContent)
}
