package repository

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/user/moodreel/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB 初始化数据库连接并迁移表结构
func InitDB(databaseURL string) (*gorm.DB, error) {
	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	// 测试连接
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("gorm 初始化失败: %w", err)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.Review{},
		&model.Activity{},
		&model.WatchlistEntry{},
		&model.Notification{},
	); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("数据表迁移失败: %w", err)
	}

	return db, nil
}

// NewPostgresRepositories 基于 gorm 的仓库集合
func NewPostgresRepositories(db *gorm.DB) (*Repositories, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return &Repositories{
		Driver:        "postgres",
		Users:         NewUserRepository(db),
		Reviews:       NewReviewRepository(db),
		Activity:      NewActivityRepository(db),
		Watchlists:    NewWatchlistRepository(db),
		Notifications: NewNotificationRepository(db),
		close:         sqlDB.Close,
	}, nil
}
