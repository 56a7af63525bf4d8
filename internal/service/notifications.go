package service

import (
	"context"
	"time"

	"example.com/eventhub/internal/model"
	"example.com/eventhub/internal/repository"
)

// DefaultNotificationLimit caps the feed when the caller does not ask
// for a specific page size
const DefaultNotificationLimit = 50

// NotificationService reads the notification feed
type NotificationService interface {
	ListRecent(ctx context.Context, limit int) ([]*model.Notification, error)
	MarkAllRead(ctx context.Context) (int64, error)
}

// notificationService implements NotificationService
type notificationService struct {
	notifications repository.NotificationRepository
	queryTimeout  time.Duration
}

// NewNotificationService creates a new notification service
func NewNotificationService(notifications repository.NotificationRepository, queryTimeout time.Duration) NotificationService {
	if queryTimeout == 0 {
		queryTimeout = 5 * time.Second
	}
	return &notificationService{
		notifications: notifications,
		queryTimeout:  queryTimeout,
	}
}

// ListRecent lists the most recent notifications, newest first
func (s *notificationService) ListRecent(ctx context.Context, limit int) ([]*model.Notification, error) {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}

	opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	return s.notifications.ListRecent(opCtx, limit)
}

// MarkAllRead marks all unread notifications as read
func (s *notificationService) MarkAllRead(ctx context.Context) (int64, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	return s.notifications.MarkAllRead(opCtx)
}
