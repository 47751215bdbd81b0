package service

import (
	"context"

	"github.com/user/moodreel/internal/model"
	"github.com/user/moodreel/internal/repository"
)

// Profile 个人资料页数据
type Profile struct {
	User          *model.User `json:"user"`
	RatingCount   int         `json:"rating_count"`
	AverageRating float64     `json:"average_rating"`
}

// HasRatings 是否评过分
func (p *Profile) HasRatings() bool {
	return p.RatingCount > 0
}

// ProfileService 个人资料
type ProfileService struct {
	users   repository.UserStore
	reviews repository.ReviewStore
}

// NewProfileService 创建服务
func NewProfileService(users repository.UserStore, reviews repository.ReviewStore) *ProfileService {
	return &ProfileService{users: users, reviews: reviews}
}

// Profile 用户资料和评分统计，用户不存在返回 nil
func (s *ProfileService) Profile(ctx context.Context, userID int) (*Profile, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil || user == nil {
		return nil, err
	}

	reviews, err := s.reviews.ReviewsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := &Profile{User: user, RatingCount: len(reviews)}
	if len(reviews) > 0 {
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		p.AverageRating = float64(sum) / float64(len(reviews))
	}
	return p, nil
}
