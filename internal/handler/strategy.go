package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/moodreel/internal/logging"
	"github.com/user/moodreel/internal/model"
	"github.com/user/moodreel/internal/notice"
	"github.com/user/moodreel/internal/recommend"
	"github.com/user/moodreel/internal/service"
)

// 推荐策略名称
const (
	StrategyContent       = "content"
	StrategyCollaborative = "collaborative"
	StrategyHybrid        = "hybrid"
	StrategyPersonalized  = "personalized"
)

// Strategies 页面上的策略选项
var Strategies = []string{StrategyContent, StrategyCollaborative, StrategyHybrid, StrategyPersonalized}

// ErrUnknownStrategy 不支持的策略
var ErrUnknownStrategy = errors.New("unknown recommendation strategy")

// strategyRequest 一次推荐请求
type strategyRequest struct {
	Strategy string
	MovieID  int
	// UserID 0 表示未登录
	UserID        int
	ContentWeight *float64
	SessionID     string
}

// runStrategy 执行推荐策略，失败时写入提示
// 返回的错误只用于 JSON 接口决定状态码
func (h *Handler) runStrategy(ctx context.Context, req strategyRequest) ([]model.Recommendation, error) {
	userID := req.UserID
	if userID <= 0 {
		userID = DefaultUserID
	}

	var recs []model.Recommendation
	var err error
	switch req.Strategy {
	case StrategyContent:
		recs, err = h.Recommender.ContentBased(ctx, req.MovieID)
		if errors.Is(err, recommend.ErrSimilarityUnavailable) {
			logging.Info().Int("movie_id", req.MovieID).Msg("[Recommend] 相似度矩阵缺失，改用实时类型相似度")
			recs, err = h.Recommender.ContentBasedLive(ctx, req.MovieID, 0)
		}
	case StrategyCollaborative:
		recs, err = h.Recommender.Collaborative(ctx, userID)
	case StrategyHybrid:
		weight := req.ContentWeight
		if weight == nil {
			weight = recommend.Weight(h.Config.ContentWeight)
		}
		var fallback []model.CatalogMovie
		if snap := h.Sessions.Get(req.SessionID); snap.MoodResult != nil {
			fallback = snap.MoodResult.Movies
		}
		recs = h.Recommender.Hybrid(ctx, recommend.HybridRequest{
			MovieID:       req.MovieID,
			UserID:        userID,
			ContentWeight: weight,
			Fallback:      fallback,
		})
	case StrategyPersonalized:
		if req.UserID <= 0 {
			notice.Warn(ctx, "Please sign in to get personalized recommendations. Showing popular movies.")
			recs = h.Recommender.Popular(ctx, 5)
			break
		}
		recs, err = h.Recommender.Personalized(ctx, req.UserID)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, req.Strategy)
	}

	if err != nil {
		reportStrategyError(ctx, req, err)
		return nil, err
	}
	if len(recs) == 0 {
		notice.Warn(ctx, "No %s recommendations found.", req.Strategy)
	}

	h.Sessions.Update(req.SessionID, func(s *service.SessionSnapshot) {
		s.LastStrategy = req.Strategy
		s.LastRecs = recs
		s.SelectedMovie = req.MovieID
	})
	return recs, nil
}

// reportStrategyError 把推荐错误转成用户可读的提示
func reportStrategyError(ctx context.Context, req strategyRequest, err error) {
	switch {
	case errors.Is(err, recommend.ErrMovieNotFound):
		notice.Error(ctx, "Movie ID %d not found in the database.", req.MovieID)
	case errors.Is(err, recommend.ErrNoRatings):
		notice.Warn(ctx, "No ratings found for this user. Rate some movies to get collaborative recommendations.")
	case errors.Is(err, recommend.ErrCollaborativeUnavailable):
		notice.Error(ctx, "Collaborative filtering is currently unavailable.")
	default:
		logging.Error().Err(err).Str("strategy", req.Strategy).Msg("[Recommend] 推荐失败")
		notice.Error(ctx, "Error generating %s recommendations.", req.Strategy)
	}
}
