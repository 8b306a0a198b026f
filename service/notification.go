package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/ragdesk/store"
)

// notificationStore is the slice of the store the notification service needs.
type notificationStore interface {
	CreateNotification(ctx context.Context, create *store.Notification) (*store.Notification, error)
	ListNotifications(ctx context.Context, find *store.FindNotification) ([]*store.Notification, error)
	UpdateNotification(ctx context.Context, update *store.UpdateNotification) (*store.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID int32, readTs int64) error
}

// NotificationService maintains the dashboard's notification feed.
type NotificationService struct {
	store  notificationStore
	logger *slog.Logger
}

func NewNotificationService(st notificationStore, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{store: st, logger: logger}
}

// Notify appends a notification to the user's feed.
func (s *NotificationService) Notify(ctx context.Context, userID int32, kind store.NotificationKind, title, body string) error {
	_, err := s.store.CreateNotification(ctx, &store.Notification{
		UID:       shortuuid.New(),
		Kind:      kind,
		Title:     title,
		Body:      body,
		UserID:    userID,
		CreatedTs: time.Now().Unix(),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to create %s notification", kind)
	}
	return nil
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID int32, unreadOnly bool, limit int) ([]*store.Notification, error) {
	find := &store.FindNotification{UserID: &userID, UnreadOnly: unreadOnly}
	if limit > 0 {
		find.Limit = &limit
	}
	notifications, err := s.store.ListNotifications(ctx, find)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead marks a single notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id int32) error {
	now := time.Now().Unix()
	_, err := s.store.UpdateNotification(ctx, &store.UpdateNotification{
		ID:     id,
		ReadTs: &now,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to mark notification %d read", id)
	}
	return nil
}

// MarkAllRead marks every unread notification of the user as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID int32) error {
	if err := s.store.MarkAllNotificationsRead(ctx, userID, time.Now().Unix()); err != nil {
		return errors.Wrap(err, "failed to mark notifications read")
	}
	return nil
}
