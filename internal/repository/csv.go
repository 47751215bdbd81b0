package repository

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/user/moodreel/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// CSV 文件名
const (
	UsersFile    = "users.csv"
	ReviewsFile  = "user_reviews.csv"
	ActivityFile = "user_activity.csv"
)

// NewCSVRepositories 基于数据目录下 CSV 文件的仓库集合
func NewCSVRepositories(dir string) (*Repositories, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}
	return &Repositories{
		Driver:        "csv",
		Users:         NewCSVUserStore(dir),
		Reviews:       NewCSVReviewStore(dir),
		Activity:      NewCSVActivityStore(dir),
		Watchlists:    NewCSVWatchlistStore(dir),
		Notifications: NewCSVNotificationStore(dir),
		purge: func(before time.Time) (int, error) {
			return purgeCorrupted(dir, before)
		},
	}, nil
}

// CSVUserStore users.csv: username,password,user_id
type CSVUserStore struct {
	file *csvFile
}

func NewCSVUserStore(dir string) *CSVUserStore {
	return &CSVUserStore{file: newCSVFile(dir, UsersFile, "username", "password", "user_id")}
}

func parseUser(row []string) (*model.User, error) {
	id, err := strconv.Atoi(row[2])
	if err != nil {
		return nil, fmt.Errorf("user_id: %w", err)
	}
	return &model.User{ID: id, Username: row[0], PasswordHash: row[1]}, nil
}

// CreateUser 创建用户
func (s *CSVUserStore) CreateUser(ctx context.Context, username, password string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	users, err := loadRows(ctx, s.file, parseUser)
	if err != nil {
		return nil, err
	}
	maxID := 0
	for _, u := range users {
		if u.Username == username {
			return nil, ErrUserExists
		}
		maxID = max(maxID, u.ID)
	}

	user := &model.User{ID: maxID + 1, Username: username, PasswordHash: string(hash)}
	if err := s.file.appendLocked([]string{user.Username, user.PasswordHash, strconv.Itoa(user.ID)}); err != nil {
		return nil, err
	}
	return user, nil
}

// FindUser 根据用户名查找用户
func (s *CSVUserStore) FindUser(ctx context.Context, username string) (*model.User, error) {
	return s.find(ctx, func(u *model.User) bool { return u.Username == username })
}

// FindUserByID 根据 ID 查找用户
func (s *CSVUserStore) FindUserByID(ctx context.Context, id int) (*model.User, error) {
	return s.find(ctx, func(u *model.User) bool { return u.ID == id })
}

func (s *CSVUserStore) find(ctx context.Context, match func(*model.User) bool) (*model.User, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if match(u) {
			return u, nil
		}
	}
	return nil, nil
}

// ListUsers 全部用户
func (s *CSVUserStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()
	return loadRows(ctx, s.file, parseUser)
}

// CSVReviewStore user_reviews.csv: user,movie_id,title,rating,review
type CSVReviewStore struct {
	file *csvFile
}

func NewCSVReviewStore(dir string) *CSVReviewStore {
	return &CSVReviewStore{file: newCSVFile(dir, ReviewsFile, "user", "movie_id", "title", "rating", "review")}
}

func parseReview(row []string) (model.Review, error) {
	uid, err := strconv.Atoi(row[0])
	if err != nil {
		return model.Review{}, fmt.Errorf("user: %w", err)
	}
	mid, err := strconv.Atoi(row[1])
	if err != nil {
		return model.Review{}, fmt.Errorf("movie_id: %w", err)
	}
	rating, err := strconv.Atoi(row[3])
	if err != nil {
		return model.Review{}, fmt.Errorf("rating: %w", err)
	}
	return model.Review{UserID: uid, MovieID: mid, Title: row[2], Rating: rating, Text: row[4]}, nil
}

// AddReview 追加评分
func (s *CSVReviewStore) AddReview(_ context.Context, r *model.Review) error {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()
	return s.file.appendLocked([]string{
		strconv.Itoa(r.UserID),
		strconv.Itoa(r.MovieID),
		r.Title,
		strconv.Itoa(r.Rating),
		r.Text,
	})
}

// ListReviews 全部评分
func (s *CSVReviewStore) ListReviews(ctx context.Context) ([]model.Review, error) {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()
	return loadRows(ctx, s.file, parseReview)
}

// ReviewsByUser 用户的评分
func (s *CSVReviewStore) ReviewsByUser(ctx context.Context, userID int) ([]model.Review, error) {
	return s.filter(ctx, func(r model.Review) bool { return r.UserID == userID })
}

// ReviewsByMovie 电影的评分
func (s *CSVReviewStore) ReviewsByMovie(ctx context.Context, movieID int) ([]model.Review, error) {
	return s.filter(ctx, func(r model.Review) bool { return r.MovieID == movieID })
}

func (s *CSVReviewStore) filter(ctx context.Context, keep func(model.Review) bool) ([]model.Review, error) {
	all, err := s.ListReviews(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, r := range all {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// CSVActivityStore user_activity.csv: user_id,action,title,movie_id,rating,timestamp
type CSVActivityStore struct {
	file *csvFile
}

func NewCSVActivityStore(dir string) *CSVActivityStore {
	return &CSVActivityStore{file: newCSVFile(dir, ActivityFile, "user_id", "action", "title", "movie_id", "rating", "timestamp")}
}

func parseActivity(row []string) (model.Activity, error) {
	uid, err := strconv.Atoi(row[0])
	if err != nil {
		return model.Activity{}, fmt.Errorf("user_id: %w", err)
	}
	mid, err := strconv.Atoi(row[3])
	if err != nil {
		return model.Activity{}, fmt.Errorf("movie_id: %w", err)
	}
	var rating *int
	if row[4] != "" {
		v, err := strconv.Atoi(row[4])
		if err != nil {
			return model.Activity{}, fmt.Errorf("rating: %w", err)
		}
		rating = &v
	}
	ts, err := time.ParseInLocation(model.ActivityTimeLayout, row[5], time.Local)
	if err != nil {
		return model.Activity{}, fmt.Errorf("timestamp: %w", err)
	}
	return model.Activity{
		UserID:    uid,
		Action:    model.ActivityAction(row[1]),
		Title:     row[2],
		MovieID:   mid,
		Rating:    rating,
		Timestamp: ts,
	}, nil
}

// LogActivity 记录行为
func (s *CSVActivityStore) LogActivity(_ context.Context, a *model.Activity) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	a.Timestamp = a.Timestamp.Truncate(time.Second)

	rating := ""
	if a.Rating != nil {
		rating = strconv.Itoa(*a.Rating)
	}

	s.file.mu.Lock()
	defer s.file.mu.Unlock()
	return s.file.appendLocked([]string{
		strconv.Itoa(a.UserID),
		string(a.Action),
		a.Title,
		strconv.Itoa(a.MovieID),
		rating,
		a.Timestamp.Format(model.ActivityTimeLayout),
	})
}

// ActivityByUser 用户行为，最新的在前；同一秒内后写入的在前
func (s *CSVActivityStore) ActivityByUser(ctx context.Context, userID int) ([]model.Activity, error) {
	s.file.mu.Lock()
	all, err := loadRows(ctx, s.file, parseActivity)
	s.file.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var out []model.Activity
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].UserID == userID {
			out = append(out, all[i])
		}
	}
	slices.SortStableFunc(out, func(a, b model.Activity) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out, nil
}

// CSVWatchlistStore 每个用户一个 watchlist_<uid>.csv: title,movie_id
type CSVWatchlistStore struct {
	dir string
}

func NewCSVWatchlistStore(dir string) *CSVWatchlistStore {
	return &CSVWatchlistStore{dir: dir}
}

func (s *CSVWatchlistStore) file(userID int) *csvFile {
	return newCSVFile(s.dir, fmt.Sprintf("watchlist_%d.csv", userID), "title", "movie_id")
}

func parseWatchlistEntry(userID int) func([]string) (model.WatchlistEntry, error) {
	return func(row []string) (model.WatchlistEntry, error) {
		mid, err := strconv.Atoi(row[1])
		if err != nil {
			return model.WatchlistEntry{}, fmt.Errorf("movie_id: %w", err)
		}
		return model.WatchlistEntry{UserID: userID, Title: row[0], MovieID: mid}, nil
	}
}

// Watchlist 用户片单，按加入顺序
func (s *CSVWatchlistStore) Watchlist(ctx context.Context, userID int) ([]model.WatchlistEntry, error) {
	f := s.file(userID)
	f.mu.Lock()
	defer f.mu.Unlock()
	return loadRows(ctx, f, parseWatchlistEntry(userID))
}

// AddToWatchlist 加入片单
func (s *CSVWatchlistStore) AddToWatchlist(ctx context.Context, userID int, title string, movieID int) (bool, error) {
	f := s.file(userID)
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := loadRows(ctx, f, parseWatchlistEntry(userID))
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.MovieID == movieID {
			return false, nil
		}
	}
	if err := f.appendLocked([]string{title, strconv.Itoa(movieID)}); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveFromWatchlist 移出片单，重写整个文件
func (s *CSVWatchlistStore) RemoveFromWatchlist(ctx context.Context, userID, movieID int) (bool, error) {
	f := s.file(userID)
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := loadRows(ctx, f, parseWatchlistEntry(userID))
	if err != nil {
		return false, err
	}
	removed := false
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		if e.MovieID == movieID {
			removed = true
			continue
		}
		rows = append(rows, []string{e.Title, strconv.Itoa(e.MovieID)})
	}
	if !removed {
		return false, nil
	}
	return true, f.rewriteLocked(rows)
}

// CSVNotificationStore 每个用户一个 notified_<uid>.txt，每行一个电影 ID
type CSVNotificationStore struct {
	dir string
}

func NewCSVNotificationStore(dir string) *CSVNotificationStore {
	return &CSVNotificationStore{dir: dir}
}

func (s *CSVNotificationStore) path(userID int) string {
	return filepath.Join(s.dir, fmt.Sprintf("notified_%d.txt", userID))
}

// Notified 已提醒过的电影 ID
func (s *CSVNotificationStore) Notified(ctx context.Context, userID int) (map[int]struct{}, error) {
	path := s.path(userID)
	mu := lockFor(path)
	mu.Lock()
	defer mu.Unlock()
	return readNotified(ctx, path)
}

func readNotified(ctx context.Context, path string) (map[int]struct{}, error) {
	ids := make(map[int]struct{})
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return ids, nil
	}
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		id, err := strconv.Atoi(text)
		if err != nil {
			file.Close()
			quarantine(ctx, path, fmt.Errorf("line %d: %w", line, err))
			return make(map[int]struct{}), nil
		}
		ids[id] = struct{}{}
	}
	err = scanner.Err()
	file.Close()
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// MarkNotified 追加已提醒的电影 ID
func (s *CSVNotificationStore) MarkNotified(_ context.Context, userID int, movieIDs []int) error {
	if len(movieIDs) == 0 {
		return nil
	}
	path := s.path(userID)
	mu := lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	var b strings.Builder
	for _, id := range movieIDs {
		b.WriteString(strconv.Itoa(id))
		b.WriteByte('\n')
	}
	if _, err := file.WriteString(b.String()); err != nil {
		return err
	}
	return file.Sync()
}
