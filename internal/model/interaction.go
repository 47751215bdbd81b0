package model

import (
	"strconv"
	"time"
)

// ActivityAction 用户行为类型
type ActivityAction string

const (
	ActionWatched          ActivityAction = "watched"
	ActionRated            ActivityAction = "rated"
	ActionAddedToWatchlist ActivityAction = "added_to_watchlist"
)

// ActivityTimeLayout 行为日志中的时间格式
const ActivityTimeLayout = "2006-01-02 15:04:05"

// Review 评分与短评，只追加不修改
type Review struct {
	ID      uint   `json:"-" gorm:"primaryKey"`
	UserID  int    `json:"user" gorm:"index"`
	MovieID int    `json:"movie_id" gorm:"index"`
	Title   string `json:"title"`
	Rating  int    `json:"rating"`
	Text    string `json:"review"`
}

// Activity 行为日志
type Activity struct {
	ID        uint           `json:"-" gorm:"primaryKey"`
	UserID    int            `json:"user_id" gorm:"index"`
	Action    ActivityAction `json:"action"`
	Title     string         `json:"title"`
	MovieID   int            `json:"movie_id"`
	Rating    *int           `json:"rating,omitempty"`
	Timestamp time.Time      `json:"timestamp" gorm:"index"`
}

// Describe 历史页面上的行为描述
func (a *Activity) Describe() string {
	ts := a.Timestamp.Format(ActivityTimeLayout)
	switch a.Action {
	case ActionWatched:
		return "Watched on " + ts
	case ActionRated:
		if a.Rating != nil {
			return "Rated " + strconv.Itoa(*a.Rating) + "/5 on " + ts
		}
		return "Rated on " + ts
	case ActionAddedToWatchlist:
		return "Added to watchlist on " + ts
	default:
		return "Unknown action on " + ts
	}
}

// WatchlistEntry 片单条目
type WatchlistEntry struct {
	ID      uint   `json:"-" gorm:"primaryKey"`
	UserID  int    `json:"-" gorm:"uniqueIndex:idx_watchlist_user_movie"`
	Title   string `json:"title"`
	MovieID int    `json:"movie_id" gorm:"uniqueIndex:idx_watchlist_user_movie"`
}

// Notification 已推送过的新片提醒
type Notification struct {
	ID      uint `gorm:"primaryKey"`
	UserID  int  `gorm:"uniqueIndex:idx_notified_user_movie"`
	MovieID int  `gorm:"uniqueIndex:idx_notified_user_movie"`
}
