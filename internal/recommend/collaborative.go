package recommend

import (
	"context"
	"fmt"

	"github.com/user/moodreel/internal/model"
)

// Collaborative 基于评分模型的协同过滤，返回预测分最高的 3 部未评分电影
//
// 模型未加载或用户没有任何评分时返回 ErrCollaborativeUnavailable。
func (s *Service) Collaborative(ctx context.Context, userID int) (recs []model.Recommendation, err error) {
	defer func() { record(SourceCollaborative, recs, err) }()

	pred := s.movies.Predictor()
	if pred == nil {
		return nil, fmt.Errorf("%w: rating model not loaded", ErrCollaborativeUnavailable)
	}

	reviews, err := s.ratings.ReviewsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}
	if len(reviews) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrCollaborativeUnavailable, ErrNoRatings)
	}

	rated := make(map[int]struct{}, len(reviews))
	for _, r := range reviews {
		rated[r.MovieID] = struct{}{}
	}

	movies := s.movies.Movies()
	seen := make(map[int]struct{}, len(movies))
	ranked := make([]scoredIndex, 0, len(movies))
	for i, m := range movies {
		if _, ok := rated[m.ID]; ok {
			continue
		}
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		ranked = append(ranked, scoredIndex{index: i, score: pred.Predict(userID, m.ID)})
	}
	rankDesc(ranked)
	if len(ranked) > collaborativeTopN {
		ranked = ranked[:collaborativeTopN]
	}

	recs = make([]model.Recommendation, 0, len(ranked))
	for _, r := range ranked {
		recs = append(recs, model.Recommendation{
			MovieID: movies[r.index].ID,
			Title:   movies[r.index].Title,
			Score:   r.score,
			Source:  SourceCollaborative,
		})
	}
	return s.withPosters(ctx, recs), nil
}
