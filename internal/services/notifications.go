package services

import (
	"context"
	"time"

	"github.com/offolaunch/launchtrack/internal/models"
	"github.com/offolaunch/launchtrack/internal/store"
)

type NotificationService struct {
	store *store.Store
	now   func() time.Time
}

type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	Total         int64                 `json:"total"`
	UnreadCount   int64                 `json:"unreadCount"`
}

func (s *NotificationService) List(ctx context.Context, user *models.User, f store.NotificationFilter) (*NotificationPage, error) {
	if err := checkEnum("status", f.Status, models.NotificationStatuses); err != nil {
		return nil, err
	}
	if err := checkEnum("type", f.Type, models.NotificationTypes); err != nil {
		return nil, err
	}

	list, total, err := s.store.Notifications.ListForUser(ctx, user.ID, f)
	if err != nil {
		return nil, err
	}
	unread, err := s.store.Notifications.UnreadCount(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{Notifications: list, Total: total, UnreadCount: unread}, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, user *models.User) (int64, error) {
	return s.store.Notifications.UnreadCount(ctx, user.ID)
}

func (s *NotificationService) MarkRead(ctx context.Context, user *models.User, id string) (*models.Notification, error) {
	return s.store.Notifications.MarkRead(ctx, user.ID, id, s.now())
}

func (s *NotificationService) MarkAllRead(ctx context.Context, user *models.User) (int64, error) {
	return s.store.Notifications.MarkAllRead(ctx, user.ID, s.now())
}

func (s *NotificationService) Delete(ctx context.Context, user *models.User, id string) error {
	return s.store.Notifications.Delete(ctx, user.ID, id)
}

func (s *NotificationService) DeleteRead(ctx context.Context, user *models.User) (int64, error) {
	return s.store.Notifications.DeleteRead(ctx, user.ID)
}
