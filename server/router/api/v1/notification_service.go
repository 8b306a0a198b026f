package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/ragdesk/service"
	"github.com/hrygo/ragdesk/store"
)

// NotificationService exposes the dashboard's notification feed.
type NotificationService struct {
	Notifications *service.NotificationService
}

func (s *NotificationService) Register(g *echo.Group) {
	g.GET("/notifications", s.ListNotifications)
	g.POST("/notifications/:id/read", s.MarkRead)
	g.POST("/notifications/read-all", s.MarkAllRead)
}

type notificationResponse struct {
	ID        int32  `json:"id"`
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Read      bool   `json:"read"`
	CreatedTs int64  `json:"createdTs"`
}

func toNotificationResponse(n *store.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		Kind:      string(n.Kind),
		Title:     n.Title,
		Body:      n.Body,
		Read:      n.ReadTs != nil,
		CreatedTs: n.CreatedTs,
	}
}

// ListNotifications returns the user's notifications, newest first.
// ?unread=true restricts to unread entries.
func (s *NotificationService) ListNotifications(c echo.Context) error {
	unreadOnly := c.QueryParam("unread") == "true"

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return badRequest(c, "limit must be a non-negative integer")
		}
		limit = parsed
	}

	notifications, err := s.Notifications.List(c.Request().Context(), currentUserID(c), unreadOnly, limit)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to list notifications")
	}

	response := make([]notificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		response = append(response, toNotificationResponse(notification))
	}
	return c.JSON(http.StatusOK, response)
}

// MarkRead marks one notification as read.
func (s *NotificationService) MarkRead(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return badRequest(c, "invalid notification id")
	}
	if err := s.Notifications.MarkRead(c.Request().Context(), int32(id)); err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to mark notification read")
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkAllRead marks all of the user's notifications as read.
func (s *NotificationService) MarkAllRead(c echo.Context) error {
	if err := s.Notifications.MarkAllRead(c.Request().Context(), currentUserID(c)); err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to mark notifications read")
	}
	return c.NoContent(http.StatusNoContent)
}
