package service

import (
	"context"
	"time"

	"github.com/user/moodreel/internal/logging"
	"github.com/user/moodreel/internal/repository"
)

// CleanupService 定时清理过期的会话状态和损坏文件备份
type CleanupService struct {
	repos     *repository.Repositories
	sessions  *SessionState
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

// NewCleanupService 创建清理服务
func NewCleanupService(repos *repository.Repositories, sessions *SessionState, interval, retention time.Duration) *CleanupService {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &CleanupService{
		repos:     repos,
		sessions:  sessions,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}
}

// Start 启动定时清理任务，ctx 取消后退出
func (s *CleanupService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)

	// 启动时先运行一次
	go s.runCleanup()

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runCleanup()
			}
		}
	}()
}

func (s *CleanupService) runCleanup() {
	log := logging.With("cleanup")
	log.Debug().Msg("[CleanupService] 开始清理过期数据...")

	// 1. 过期的会话界面状态
	if s.sessions != nil {
		if n := s.sessions.DeleteExpired(); n > 0 {
			log.Info().Int("sessions", n).Msg("[CleanupService] 已清理过期会话状态")
		}
	}

	// 2. 超过保留期的损坏文件备份
	removed, err := s.repos.PurgeBackups(s.now().Add(-s.retention))
	if err != nil {
		log.Error().Err(err).Msg("[CleanupService] 清理损坏文件备份失败")
	} else if removed > 0 {
		log.Info().Int("files", removed).Msg("[CleanupService] 已清理过期的损坏文件备份")
	}
}
