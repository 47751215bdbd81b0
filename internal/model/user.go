package model

// User 用户模型（用户名即注册邮箱）
type User struct {
	ID           int    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Username     string `json:"username" gorm:"uniqueIndex"`
	PasswordHash string `json:"-"`
}

// SessionUser 专门用于 Session 存储的用户信息结构
type SessionUser struct {
	ID       int
	Username string
}
