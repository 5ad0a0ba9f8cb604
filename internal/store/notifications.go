package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"labstation-backend/internal/model"
)

// ListNotifications returns the actor's notifications, newest first.
func (s *gormStore) ListNotifications(ctx context.Context, actor Actor) ([]model.Notification, error) {
	var notifications []model.Notification
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", actor.UserID).
		Order("created_at DESC").
		Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkNotificationRead flags one of the actor's notifications as read.
// Another user's notification is indistinguishable from a missing one.
func (s *gormStore) MarkNotificationRead(ctx context.Context, actor Actor, id int64) (*model.Notification, error) {
	var notification model.Notification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", id, actor.UserID).
			First(&notification).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errNotificationNotFound(id)
			}
			return err
		}
		notification.Read = true
		return tx.Model(&model.Notification{}).
			Where("id = ?", id).
			Update("read", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

// GetNotification loads a notification by id, for delivery workers.
func (s *gormStore) GetNotification(ctx context.Context, id int64) (*model.Notification, error) {
	var notification model.Notification
	if err := s.db.WithContext(ctx).First(&notification, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotificationNotFound(id)
		}
		return nil, err
	}
	return &notification, nil
}

// UpsertPushSubscription registers or refreshes a push subscription for
// the acting user.
func (s *gormStore) UpsertPushSubscription(ctx context.Context, actor Actor, sub model.PushSubscription) error {
	sub.UserID = actor.UserID
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "user_id"}),
	}).Create(&sub).Error
}

// DeletePushSubscription removes a subscription by endpoint.
func (s *gormStore) DeletePushSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}

// SubscriptionsForUser returns every push subscription registered by the
// given user.
func (s *gormStore) SubscriptionsForUser(ctx context.Context, userID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}
