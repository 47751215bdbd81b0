package recommend

import (
	"context"
	"fmt"
	"sort"

	"github.com/user/moodreel/internal/logging"
	"github.com/user/moodreel/internal/metrics"
	"github.com/user/moodreel/internal/model"
	"github.com/user/moodreel/internal/notice"
)

// TopRated 用户评分最高的 n 部电影 ID（去重，同分时先评的在前）
func TopRated(reviews []model.Review, n int) []int {
	sorted := make([]model.Review, len(reviews))
	copy(sorted, reviews)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rating > sorted[j].Rating
	})

	seen := make(map[int]struct{}, n)
	ids := make([]int, 0, n)
	for _, r := range sorted {
		if _, ok := seen[r.MovieID]; ok {
			continue
		}
		seen[r.MovieID] = struct{}{}
		ids = append(ids, r.MovieID)
		if len(ids) == n {
			break
		}
	}
	return ids
}

// Personalized 以用户评分最高的 5 部电影为种子，合并各自的内容推荐
// 没有评分或没有结果时返回 5 部热门电影并附带提示
func (s *Service) Personalized(ctx context.Context, userID int) ([]model.Recommendation, error) {
	reviews, err := s.ratings.ReviewsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}

	seeds := TopRated(reviews, personalizedSeeds)
	if len(seeds) == 0 {
		notice.Warn(ctx, "No ratings found for your account. Please rate some movies first.")
		metrics.Recommendations.WithLabelValues(SourcePersonalized, "fallback").Inc()
		return s.Popular(ctx, popularFallbackN), nil
	}

	var out []model.Recommendation
	seen := make(map[int]struct{})
	for _, id := range seeds {
		recs, err := s.ContentBased(ctx, id)
		if err != nil {
			logging.Debug().Err(err).Int("seed", id).Msg("[Recommend] 个性化推荐：种子电影无内容推荐")
			continue
		}
		for _, r := range recs {
			if _, ok := seen[r.MovieID]; ok {
				continue
			}
			seen[r.MovieID] = struct{}{}
			r.Source = SourcePersonalized
			out = append(out, r)
		}
	}

	if len(out) == 0 {
		notice.Warn(ctx, "No personalized recommendations found. Showing popular movies instead.")
		metrics.Recommendations.WithLabelValues(SourcePersonalized, "fallback").Inc()
		return s.Popular(ctx, popularFallbackN), nil
	}
	record(SourcePersonalized, out, nil)
	return out, nil
}
