package repository

import (
	"context"
	"time"

	"github.com/user/moodreel/internal/model"
	"gorm.io/gorm"
)

type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// LogActivity 记录行为
func (r *ActivityRepository) LogActivity(ctx context.Context, a *model.Activity) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	// 与 CSV 存储保持同样的秒级精度
	a.Timestamp = a.Timestamp.Truncate(time.Second)
	return r.db.WithContext(ctx).Create(a).Error
}

// ActivityByUser 用户行为，最新的在前
func (r *ActivityRepository) ActivityByUser(ctx context.Context, userID int) ([]model.Activity, error) {
	var list []model.Activity
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC, id DESC").
		Find(&list).Error
	return list, err
}
