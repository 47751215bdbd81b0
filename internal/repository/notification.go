package repository

import (
	"context"

	"github.com/user/moodreel/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Notified 已提醒过的电影 ID
func (r *NotificationRepository) Notified(ctx context.Context, userID int) (map[int]struct{}, error) {
	var ids []int
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ?", userID).
		Pluck("movie_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// MarkNotified 记录已提醒
func (r *NotificationRepository) MarkNotified(ctx context.Context, userID int, movieIDs []int) error {
	if len(movieIDs) == 0 {
		return nil
	}
	rows := make([]model.Notification, len(movieIDs))
	for i, id := range movieIDs {
		rows[i] = model.Notification{UserID: userID, MovieID: id}
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}
