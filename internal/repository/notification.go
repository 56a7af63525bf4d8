package repository

import (
	"context"

	"gorm.io/gorm"

	"example.com/eventhub/internal/model"
)

// NotificationRepository defines the interface for the notification sink.
// The sink is append-only: records are never updated except the Read
// flag, and never deleted.
type NotificationRepository interface {
	Append(ctx context.Context, notification *model.Notification) error
	ListRecent(ctx context.Context, limit int) ([]*model.Notification, error)
	// MarkAllRead flips every unread notification to read and returns the
	// number of records flipped.
	MarkAllRead(ctx context.Context) (int64, error)
}

// notificationRepository implements NotificationRepository
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Append appends a notification to the log
func (r *notificationRepository) Append(ctx context.Context, notification *model.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// ListRecent lists the most recent notifications, newest first
func (r *notificationRepository) ListRecent(ctx context.Context, limit int) ([]*model.Notification, error) {
	var notifications []*model.Notification
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkAllRead marks all unread notifications as read
func (r *notificationRepository) MarkAllRead(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("read = ?", false).
		Update("read", true)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
