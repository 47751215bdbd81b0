package service

import (
	"context"
	"strings"

	"github.com/user/moodreel/internal/logging"
	"github.com/user/moodreel/internal/model"
	"github.com/user/moodreel/internal/notice"
	"github.com/user/moodreel/internal/recommend"
	"github.com/user/moodreel/internal/repository"
)

const (
	favoriteSeedCount = 5
	notifyLimit       = 3
)

// MovieTable 模型库电影表（*modelstore.Store）
type MovieTable interface {
	Movies() []model.Movie
	MovieByID(id int) (model.Movie, bool)
}

// NotificationService 新片提醒
type NotificationService struct {
	reviews  repository.ReviewStore
	notified repository.NotificationStore
	movies   MovieTable
}

// NewNotificationService 创建服务
func NewNotificationService(reviews repository.ReviewStore, notified repository.NotificationStore, movies MovieTable) *NotificationService {
	return &NotificationService{reviews: reviews, notified: notified, movies: movies}
}

// FavoriteGenres 用户评分最高的 5 部电影涵盖的类型
func (s *NotificationService) FavoriteGenres(ctx context.Context, userID int) (map[string]struct{}, error) {
	reviews, err := s.reviews.ReviewsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	genres := make(map[string]struct{})
	for _, id := range recommend.TopRated(reviews, favoriteSeedCount) {
		m, ok := s.movies.MovieByID(id)
		if !ok {
			continue
		}
		for _, g := range m.Genres {
			genres[strings.ToLower(g)] = struct{}{}
		}
	}
	return genres, nil
}

// Check 找出喜欢的类型里还没提醒过的电影，取前 3 部并标记为已提醒
func (s *NotificationService) Check(ctx context.Context, userID int) ([]model.Movie, error) {
	genres, err := s.FavoriteGenres(ctx, userID)
	if err != nil || len(genres) == 0 {
		return nil, err
	}
	seen, err := s.notified.Notified(ctx, userID)
	if err != nil {
		return nil, err
	}

	var fresh []model.Movie
	for _, m := range s.movies.Movies() {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		if !matchesAny(m, genres) {
			continue
		}
		fresh = append(fresh, m)
		seen[m.ID] = struct{}{}
		if len(fresh) == notifyLimit {
			break
		}
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	ids := make([]int, len(fresh))
	titles := make([]string, len(fresh))
	for i, m := range fresh {
		ids[i] = m.ID
		titles[i] = m.Title
	}
	if err := s.notified.MarkNotified(ctx, userID, ids); err != nil {
		return nil, err
	}

	logging.Debug().Int("user_id", userID).Ints("movies", ids).Msg("[Notify] 新片提醒")
	notice.Info(ctx, "New movies added in your favorite genres: %s", strings.Join(titles, ", "))
	return fresh, nil
}

func matchesAny(m model.Movie, genres map[string]struct{}) bool {
	for _, g := range m.Genres {
		if _, ok := genres[strings.ToLower(g)]; ok {
			return true
		}
	}
	return false
}
