package repository

import (
	"context"

	"github.com/user/moodreel/internal/model"
	"gorm.io/gorm"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// AddReview 追加评分（同一部电影重复评分会累积）
func (r *ReviewRepository) AddReview(ctx context.Context, review *model.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

// ListReviews 全部评分，按写入顺序
func (r *ReviewRepository) ListReviews(ctx context.Context) ([]model.Review, error) {
	var reviews []model.Review
	err := r.db.WithContext(ctx).Order("id ASC").Find(&reviews).Error
	return reviews, err
}

// ReviewsByUser 用户的评分
func (r *ReviewRepository) ReviewsByUser(ctx context.Context, userID int) ([]model.Review, error) {
	var reviews []model.Review
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&reviews).Error
	return reviews, err
}

// ReviewsByMovie 电影的评分
func (r *ReviewRepository) ReviewsByMovie(ctx context.Context, movieID int) ([]model.Review, error) {
	var reviews []model.Review
	err := r.db.WithContext(ctx).Where("movie_id = ?", movieID).Order("id ASC").Find(&reviews).Error
	return reviews, err
}
