package recommend

import (
	"context"

	"github.com/user/moodreel/internal/logging"
	"github.com/user/moodreel/internal/model"
	"golang.org/x/sync/errgroup"
)

// ContentBased 基于预计算相似度矩阵的推荐，返回前 5 部（不含种子电影）
func (s *Service) ContentBased(ctx context.Context, movieID int) (recs []model.Recommendation, err error) {
	defer func() { record(SourceContent, recs, err) }()

	seed, ok := s.movies.IndexOf(movieID)
	if !ok {
		return nil, ErrMovieNotFound
	}
	sim := s.movies.Similarity()
	if sim == nil {
		return nil, ErrSimilarityUnavailable
	}

	row := sim.Row(seed)
	ranked := make([]scoredIndex, 0, len(row))
	for i, v := range row {
		// 按行号排除种子，而不是假定它排在第一位
		if i == seed {
			continue
		}
		ranked = append(ranked, scoredIndex{index: i, score: float64(v)})
	}
	rankDesc(ranked)
	if len(ranked) > contentTopN {
		ranked = ranked[:contentTopN]
	}

	movies := s.movies.Movies()
	recs = make([]model.Recommendation, 0, len(ranked))
	for _, r := range ranked {
		recs = append(recs, model.Recommendation{
			MovieID: movies[r.index].ID,
			Title:   movies[r.index].Title,
			Score:   r.score,
			Source:  SourceContent,
		})
	}
	return s.withPosters(ctx, recs), nil
}

// ContentBasedByTitle 按标题查找后推荐，重名时取电影表中的第一部
func (s *Service) ContentBasedByTitle(ctx context.Context, title string) ([]model.Recommendation, error) {
	m, ok := s.movies.MovieByTitle(title)
	if !ok {
		return nil, ErrMovieNotFound
	}
	return s.ContentBased(ctx, m.ID)
}

// ContentBasedLive 相似度矩阵不可用时的兜底：实时拉取类型，按 Jaccard 相似度排序
// 每部电影都要请求一次目录接口，只适合小规模电影表
func (s *Service) ContentBasedLive(ctx context.Context, movieID, n int) (recs []model.Recommendation, err error) {
	defer func() { record(SourceContentLive, recs, err) }()

	seed, ok := s.movies.IndexOf(movieID)
	if !ok {
		return nil, ErrMovieNotFound
	}
	if n <= 0 {
		n = contentTopN
	}

	target := s.catalog.FetchMetadata(ctx, movieID)
	movies := s.movies.Movies()
	scores := make([]float64, len(movies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range movies {
		if i == seed {
			continue
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			md := s.catalog.FetchMetadata(gctx, movies[i].ID)
			scores[i] = Jaccard(target.GenreIDs, md.GenreIDs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ranked := make([]scoredIndex, 0, len(movies))
	for i := range movies {
		if i == seed {
			continue
		}
		ranked = append(ranked, scoredIndex{index: i, score: scores[i]})
	}
	rankDesc(ranked)
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	recs = make([]model.Recommendation, 0, len(ranked))
	for _, r := range ranked {
		recs = append(recs, model.Recommendation{
			MovieID: movies[r.index].ID,
			Title:   movies[r.index].Title,
			Score:   r.score,
			Source:  SourceContentLive,
		})
	}
	logging.Debug().Int("movie_id", movieID).Int("candidates", len(movies)-1).Msg("[Recommend] 实时类型相似度计算完成")
	return s.withPosters(ctx, recs), nil
}

// Jaccard |a∩b| / |a∪b|，并集为空时为 0
func Jaccard(a, b []int) float64 {
	set := make(map[int]uint8, len(a)+len(b))
	for _, v := range a {
		set[v] |= 1
	}
	for _, v := range b {
		set[v] |= 2
	}
	if len(set) == 0 {
		return 0
	}
	inter := 0
	for _, bits := range set {
		if bits == 3 {
			inter++
		}
	}
	return float64(inter) / float64(len(set))
}
