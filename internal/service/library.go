package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/user/moodreel/internal/model"
	"github.com/user/moodreel/internal/notice"
	"github.com/user/moodreel/internal/repository"
)

// ErrInvalidRating 评分不在 1-5 之间
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// LibraryService 观看、评分、片单与历史
type LibraryService struct {
	reviews    repository.ReviewStore
	activity   repository.ActivityStore
	watchlists repository.WatchlistStore
}

// NewLibraryService 创建服务
func NewLibraryService(repos *repository.Repositories) *LibraryService {
	return &LibraryService{
		reviews:    repos.Reviews,
		activity:   repos.Activity,
		watchlists: repos.Watchlists,
	}
}

// MarkWatched 记录观看
func (s *LibraryService) MarkWatched(ctx context.Context, userID int, title string, movieID int) error {
	return s.activity.LogActivity(ctx, &model.Activity{
		UserID:  userID,
		Action:  model.ActionWatched,
		Title:   title,
		MovieID: movieID,
	})
}

// Rate 评分并写短评，同时记录行为
func (s *LibraryService) Rate(ctx context.Context, userID int, title string, movieID, rating int, review string) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	// 先写评分日志，失败时不留下对应的行为记录
	if err := s.reviews.AddReview(ctx, &model.Review{
		UserID:  userID,
		MovieID: movieID,
		Title:   title,
		Rating:  rating,
		Text:    strings.TrimSpace(review),
	}); err != nil {
		return fmt.Errorf("save review: %w", err)
	}
	if err := s.activity.LogActivity(ctx, &model.Activity{
		UserID:  userID,
		Action:  model.ActionRated,
		Title:   title,
		MovieID: movieID,
		Rating:  &rating,
	}); err != nil {
		return fmt.Errorf("log activity: %w", err)
	}
	notice.Success(ctx, "Rated %s with %d stars and review submitted!", title, rating)
	return nil
}

// AddToWatchlist 加入片单，已在片单中时不重复记录
func (s *LibraryService) AddToWatchlist(ctx context.Context, userID int, title string, movieID int) (bool, error) {
	added, err := s.watchlists.AddToWatchlist(ctx, userID, title, movieID)
	if err != nil || !added {
		return false, err
	}
	if err := s.activity.LogActivity(ctx, &model.Activity{
		UserID:  userID,
		Action:  model.ActionAddedToWatchlist,
		Title:   title,
		MovieID: movieID,
	}); err != nil {
		return true, fmt.Errorf("log activity: %w", err)
	}
	notice.Success(ctx, "Added %s to watchlist!", title)
	return true, nil
}

// RemoveFromWatchlist 移出片单
func (s *LibraryService) RemoveFromWatchlist(ctx context.Context, userID, movieID int) (bool, error) {
	removed, err := s.watchlists.RemoveFromWatchlist(ctx, userID, movieID)
	if err == nil && removed {
		notice.Success(ctx, "Removed movie from watchlist!")
	}
	return removed, err
}

// Watchlist 用户片单
func (s *LibraryService) Watchlist(ctx context.Context, userID int) ([]model.WatchlistEntry, error) {
	return s.watchlists.Watchlist(ctx, userID)
}

// History 行为历史，最新的在前
func (s *LibraryService) History(ctx context.Context, userID int) ([]model.Activity, error) {
	return s.activity.ActivityByUser(ctx, userID)
}

// ShareText 分享用的片单文本
func ShareText(entries []model.WatchlistEntry) string {
	titles := make([]string, len(entries))
	for i, e := range entries {
		titles[i] = e.Title
	}
	return "My Watchlist: " + strings.Join(titles, ", ")
}
