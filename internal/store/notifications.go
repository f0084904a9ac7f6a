package store

import (
	"context"
	"time"

	"github.com/offolaunch/launchtrack/internal/models"
	"gorm.io/gorm"
)

type NotificationFilter struct {
	Status string
	Type   string
	Limit  int
	Offset int
}

type NotificationRepository struct {
	db *gorm.DB
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return translate(r.db.WithContext(ctx).Create(n).Error, "notification")
}

func (r *NotificationRepository) Save(ctx context.Context, n *models.Notification) error {
	return translate(r.db.WithContext(ctx).Save(n).Error, "notification")
}

// ListForUser returns one page of a user's notifications, newest first, and
// the total matching the filter.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, f NotificationFilter) ([]models.Notification, int64, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if f.Type != "" {
			q = q.Where("type = ?", f.Type)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, translate(err, "notification")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	notifications := []models.Notification{}
	err := base().Order("created_at desc").Limit(limit).Offset(f.Offset).Find(&notifications).Error
	if err != nil {
		return nil, 0, translate(err, "notification")
	}
	return notifications, total, nil
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&n).Error
	return n, translate(err, "notification")
}

// MarkRead sets readAt and status read once. A read notification is returned unchanged.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string, now time.Time) (*models.Notification, error) {
	var n models.Notification
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if err != nil {
		return nil, translate(err, "notification")
	}
	if n.ReadAt != nil {
		return &n, nil
	}

	readAt := now.UTC()
	n.ReadAt = &readAt
	n.Status = models.DeliveryRead
	if err := r.Save(ctx, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Updates(map[string]interface{}{"read_at": now.UTC(), "status": models.DeliveryRead})
	return res.RowsAffected, translate(res.Error, "notification")
}

func (r *NotificationRepository) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if res.Error != nil {
		return translate(res.Error, "notification")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "notification")
	}
	return nil
}

// DeleteRead removes every notification the user has already read.
func (r *NotificationRepository) DeleteRead(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND read_at IS NOT NULL", userID).Delete(&models.Notification{})
	return res.RowsAffected, translate(res.Error, "notification")
}
