// Package v1 exposes the dashboard REST API.
package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/ragdesk/chat"
	"github.com/hrygo/ragdesk/internal/profile"
	"github.com/hrygo/ragdesk/service"
)

// defaultUserID is used when the dashboard does not send an X-User-Id
// header. The dashboard is single-tenant; the header exists so a reverse
// proxy doing auth can scope data per user.
const defaultUserID int32 = 1

type APIV1Service struct {
	ChatService         *ChatService
	ConversationService *ConversationService
	DocumentService     *DocumentService
	NotificationService *NotificationService

	Profile *profile.Profile
}

func NewAPIV1Service(
	p *profile.Profile,
	registry *chat.Registry,
	dispatcher *chat.Dispatcher,
	conversations *service.ConversationService,
	catalog *service.Catalog,
	notifications *service.NotificationService,
) *APIV1Service {
	return &APIV1Service{
		ChatService: &ChatService{
			Registry:      registry,
			Dispatcher:    dispatcher,
			Conversations: conversations,
			Catalog:       catalog,
			Notifications: notifications,
		},
		ConversationService: &ConversationService{Conversations: conversations},
		DocumentService:     &DocumentService{Catalog: catalog},
		NotificationService: &NotificationService{Notifications: notifications},
		Profile:             p,
	}
}

// Register mounts all v1 routes on the group.
func (s *APIV1Service) Register(g *echo.Group) {
	s.ChatService.Register(g)
	s.ConversationService.Register(g)
	s.DocumentService.Register(g)
	s.NotificationService.Register(g)
}

// currentUserID resolves the acting user from the X-User-Id header.
func currentUserID(c echo.Context) int32 {
	if raw := c.Request().Header.Get("X-User-Id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 32); err == nil && id > 0 {
			return int32(id)
		}
	}
	return defaultUserID
}

type errorResponse struct {
	Message string `json:"message"`
}

func errorJSON(c echo.Context, code int, message string) error {
	return c.JSON(code, errorResponse{Message: message})
}

func badRequest(c echo.Context, message string) error {
	return errorJSON(c, http.StatusBadRequest, message)
}
