package service

import (
	"context"
	"errors"
	"strings"

	"github.com/user/moodreel/internal/logging"
	"github.com/user/moodreel/internal/model"
	"github.com/user/moodreel/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMissingCredentials = errors.New("email and password are required")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
)

// MinPasswordLength 注册时的最短密码
const MinPasswordLength = 6

// AccountService 账号服务
type AccountService struct {
	users repository.UserStore
}

// NewAccountService 创建账号服务
func NewAccountService(users repository.UserStore) *AccountService {
	return &AccountService{users: users}
}

// SignUp 注册，邮箱重复时返回 repository.ErrUserExists
func (s *AccountService) SignUp(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	user, err := s.users.CreateUser(ctx, email, password)
	if err != nil {
		return nil, err
	}
	logging.Info().Int("user_id", user.ID).Msg("[Account] 新用户注册")
	return user, nil
}

// SignIn 登录校验
func (s *AccountService) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.users.FindUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if !repository.CheckPassword(user, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// User 按 ID 取用户，不存在返回 nil
func (s *AccountService) User(ctx context.Context, id int) (*model.User, error) {
	return s.users.FindUserByID(ctx, id)
}
