package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/moodreel/internal/config"
	"github.com/user/moodreel/internal/model"
)

// ErrUserExists 用户名已被注册
var ErrUserExists = errors.New("username already exists")

// UserStore 账号存储
type UserStore interface {
	// CreateUser 注册用户，ID 取当前最大值 +1
	CreateUser(ctx context.Context, username, password string) (*model.User, error)
	// FindUser 按用户名查找，不存在返回 nil, nil
	FindUser(ctx context.Context, username string) (*model.User, error)
	// FindUserByID 按 ID 查找，不存在返回 nil, nil
	FindUserByID(ctx context.Context, id int) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
}

// ReviewStore 评分存储，只追加
type ReviewStore interface {
	AddReview(ctx context.Context, r *model.Review) error
	ListReviews(ctx context.Context) ([]model.Review, error)
	ReviewsByUser(ctx context.Context, userID int) ([]model.Review, error)
	ReviewsByMovie(ctx context.Context, movieID int) ([]model.Review, error)
}

// ActivityStore 行为日志
type ActivityStore interface {
	LogActivity(ctx context.Context, a *model.Activity) error
	// ActivityByUser 按时间倒序
	ActivityByUser(ctx context.Context, userID int) ([]model.Activity, error)
}

// WatchlistStore 片单
type WatchlistStore interface {
	Watchlist(ctx context.Context, userID int) ([]model.WatchlistEntry, error)
	// AddToWatchlist 已存在时不做改动，返回 false
	AddToWatchlist(ctx context.Context, userID int, title string, movieID int) (bool, error)
	// RemoveFromWatchlist 不存在时返回 false
	RemoveFromWatchlist(ctx context.Context, userID, movieID int) (bool, error)
}

// NotificationStore 已提醒过的电影
type NotificationStore interface {
	Notified(ctx context.Context, userID int) (map[int]struct{}, error)
	MarkNotified(ctx context.Context, userID int, movieIDs []int) error
}

// Repositories 仓库集合
type Repositories struct {
	Driver        string
	Users         UserStore
	Reviews       ReviewStore
	Activity      ActivityStore
	Watchlists    WatchlistStore
	Notifications NotificationStore

	close func() error
	purge func(before time.Time) (int, error)
}

// Close 释放底层连接
func (r *Repositories) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

// PurgeBackups 删除 before 之前生成的损坏文件备份，没有备份机制的实现返回 0
func (r *Repositories) PurgeBackups(before time.Time) (int, error) {
	if r.purge == nil {
		return 0, nil
	}
	return r.purge(before)
}

// Open 按配置选择存储实现
func Open(cfg *config.Config) (*Repositories, error) {
	switch cfg.StorageDriver {
	case "", "csv":
		return NewCSVRepositories(cfg.DataDir)
	case "postgres":
		db, err := InitDB(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return NewPostgresRepositories(db)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// RatedMovieIDs 用户评过分的电影 ID 集合
func RatedMovieIDs(ctx context.Context, reviews ReviewStore, userID int) (map[int]struct{}, error) {
	list, err := reviews.ReviewsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make(map[int]struct{}, len(list))
	for _, r := range list {
		ids[r.MovieID] = struct{}{}
	}
	return ids, nil
}
