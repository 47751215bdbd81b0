package service

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/user/moodreel/internal/model"
	"github.com/user/moodreel/internal/mood"
)

// SessionTTL 会话界面状态的保留时间
const SessionTTL = 24 * time.Hour

// SessionSnapshot 单个会话的界面状态（不含登录身份）
type SessionSnapshot struct {
	MoodAnswers   mood.Answers
	MoodResult    *mood.Result
	LastStrategy  string
	LastRecs      []model.Recommendation
	SelectedMovie int
}

// SessionState 按会话 ID 保存临时界面状态
type SessionState struct {
	mu    sync.Mutex
	store *cache.Cache
}

// NewSessionState 创建会话状态存储，ttl <= 0 时使用 SessionTTL
func NewSessionState(ttl time.Duration) *SessionState {
	if ttl <= 0 {
		ttl = SessionTTL
	}
	return &SessionState{store: cache.New(ttl, 10*time.Minute)}
}

// Get 取会话状态，不存在时返回零值
func (s *SessionState) Get(sessionID string) SessionSnapshot {
	if v, ok := s.store.Get(sessionID); ok {
		return v.(SessionSnapshot)
	}
	return SessionSnapshot{}
}

// Update 读-改-写，并刷新过期时间
func (s *SessionState) Update(sessionID string, fn func(*SessionSnapshot)) {
	if sessionID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.Get(sessionID)
	fn(&snap)
	s.store.SetDefault(sessionID, snap)
}

// Clear 登出时清理
func (s *SessionState) Clear(sessionID string) {
	s.store.Delete(sessionID)
}

// Len 当前会话数
func (s *SessionState) Len() int {
	return s.store.ItemCount()
}

// DeleteExpired 清理过期会话，返回清理数量
func (s *SessionState) DeleteExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.store.ItemCount()
	s.store.DeleteExpired()
	return before - s.store.ItemCount()
}
