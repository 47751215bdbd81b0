package repository

import (
	"context"

	"github.com/user/moodreel/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WatchlistRepository struct {
	db *gorm.DB
}

func NewWatchlistRepository(db *gorm.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// Watchlist 用户片单，按加入顺序
func (r *WatchlistRepository) Watchlist(ctx context.Context, userID int) ([]model.WatchlistEntry, error) {
	var entries []model.WatchlistEntry
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&entries).Error
	return entries, err
}

// AddToWatchlist 加入片单
func (r *WatchlistRepository) AddToWatchlist(ctx context.Context, userID int, title string, movieID int) (bool, error) {
	entry := &model.WatchlistEntry{
		UserID:  userID,
		Title:   title,
		MovieID: movieID,
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
	return res.RowsAffected > 0, res.Error
}

// RemoveFromWatchlist 移出片单
func (r *WatchlistRepository) RemoveFromWatchlist(ctx context.Context, userID, movieID int) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND movie_id = ?", userID, movieID).Delete(&model.WatchlistEntry{})
	return res.RowsAffected > 0, res.Error
}
