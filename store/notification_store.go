package store

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pulsefeed/pulsefeed-go/model"
)

type NotificationStore struct {
	db       *gorm.DB
	notifier *notifier
}

func (s *NotificationStore) Upsert(ctx context.Context, notifications ...model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&notifications).Error
	if err != nil {
		return errors.Wrap(err, "upsert notifications")
	}
	s.notifier.notify("notifications")
	return nil
}

func (s *NotificationStore) ByUser(ctx context.Context, userID int) ([]model.Notification, error) {
	var notifications []model.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&notifications).Error
	return notifications, errors.Wrap(err, "query notifications by user")
}

func (s *NotificationStore) UnreadCount(ctx context.Context, userID int) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return int(count), errors.Wrap(err, "count unread notifications")
}

func (s *NotificationStore) MarkRead(ctx context.Context, id int) error {
	err := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ?", id).
		Update("is_read", true).Error
	if err != nil {
		return errors.Wrap(err, "mark notification read")
	}
	s.notifier.notify("notifications")
	return nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID int) error {
	err := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ?", userID).
		Update("is_read", true).Error
	if err != nil {
		return errors.Wrap(err, "mark all notifications read")
	}
	s.notifier.notify("notifications")
	return nil
}

func (s *NotificationStore) WatchByUser(ctx context.Context, userID int) <-chan []model.Notification {
	return watch(ctx, s.notifier, "notifications", func(ctx context.Context) ([]model.Notification, error) {
		return s.ByUser(ctx, userID)
	})
}

// WatchUnreadCount feeds the badge counter.
func (s *NotificationStore) WatchUnreadCount(ctx context.Context, userID int) <-chan int {
	return watch(ctx, s.notifier, "notifications", func(ctx context.Context) (int, error) {
		return s.UnreadCount(ctx, userID)
	})
}
