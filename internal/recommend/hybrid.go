package recommend

import (
	"context"
	"errors"
	"sort"

	"github.com/user/moodreel/internal/logging"
	"github.com/user/moodreel/internal/metrics"
	"github.com/user/moodreel/internal/model"
	"github.com/user/moodreel/internal/notice"
)

// HybridRequest 混合推荐参数
type HybridRequest struct {
	MovieID int
	UserID  int
	// N 返回条数，默认 3
	N int
	// ContentWeight 内容推荐的权重，取值 [0,1]；为 nil 时取 0.5
	ContentWeight *float64
	// Fallback 没有结果时优先使用的候选（通常是上一次心情推荐的结果）
	Fallback []model.CatalogMovie
}

// Weight 返回 w 的指针，便于构造请求
func Weight(w float64) *float64 {
	return &w
}

// Hybrid 内容推荐与协同过滤的加权融合
//
// 两侧列表各自按名次映射到 1.0 ~ 0.5 的线性分数，
// combined = w*content + (1-w)*collab，只出现在一侧的电影另一侧记 0。
// 分数相同时按首次出现的顺序（先内容列表，后协同列表）。
func (s *Service) Hybrid(ctx context.Context, req HybridRequest) []model.Recommendation {
	n := req.N
	if n <= 0 {
		n = 3
	}
	w := 0.5
	if req.ContentWeight != nil {
		w = *req.ContentWeight
	}

	var content []model.Recommendation
	var err error
	if s.movies.Similarity() != nil {
		content, err = s.ContentBased(ctx, req.MovieID)
	} else {
		content, err = s.ContentBasedLive(ctx, req.MovieID, n*2)
	}
	if err != nil {
		logging.Warn().Err(err).Int("movie_id", req.MovieID).Msg("[Recommend] 混合推荐：内容推荐失败")
		if errors.Is(err, ErrMovieNotFound) {
			notice.Error(ctx, "Movie ID %d not found in the database.", req.MovieID)
		}
	}

	collab, err := s.Collaborative(ctx, req.UserID)
	if err != nil {
		logging.Info().Err(err).Int("user_id", req.UserID).Msg("[Recommend] 混合推荐：协同过滤不可用")
	}

	recs := blend(content, collab, w, req.MovieID)
	if len(recs) > n {
		recs = recs[:n]
	}
	if len(recs) > 0 {
		record(SourceHybrid, recs, nil)
		return recs
	}

	notice.Warn(ctx, "No hybrid recommendations found. Falling back to mood-based or popular movies.")
	metrics.Recommendations.WithLabelValues(SourceHybrid, "fallback").Inc()
	if len(req.Fallback) > 0 {
		fb := req.Fallback
		if len(fb) > n {
			fb = fb[:n]
		}
		return model.FromCatalog(fb, SourceMood)
	}
	return s.Popular(ctx, n)
}

// linspace start 到 end 的 n 个等距值；n == 1 时只返回 start
func linspace(start, end float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (end - start) / float64(n-1)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

// blend 计算融合分数并排序，排除种子电影
func blend(content, collab []model.Recommendation, w float64, seedID int) []model.Recommendation {
	type entry struct {
		rec     model.Recommendation
		content float64
		collab  float64
	}

	var order []int
	byID := make(map[int]*entry)
	add := func(list []model.Recommendation, isContent bool) {
		scores := linspace(1.0, 0.5, len(list))
		for i, r := range list {
			e, ok := byID[r.MovieID]
			if !ok {
				e = &entry{rec: r}
				byID[r.MovieID] = e
				order = append(order, r.MovieID)
			}
			// 同一侧重复出现时保留较高名次
			if isContent {
				if scores[i] > e.content {
					e.content = scores[i]
				}
			} else if scores[i] > e.collab {
				e.collab = scores[i]
			}
		}
	}
	add(content, true)
	add(collab, false)

	out := make([]model.Recommendation, 0, len(order))
	for _, id := range order {
		if id == seedID {
			continue
		}
		e := byID[id]
		r := e.rec
		r.Score = w*e.content + (1-w)*e.collab
		r.Source = SourceHybrid
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
