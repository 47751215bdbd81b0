// Package recommend 推荐策略：内容相似、协同过滤、混合与个性化
//
// 所有策略都以电影 ID 为主键，标题只用于展示。
package recommend

import (
	"context"
	"errors"
	"sort"

	"github.com/user/moodreel/internal/metrics"
	"github.com/user/moodreel/internal/model"
	"github.com/user/moodreel/internal/modelstore"
	"golang.org/x/sync/errgroup"
)

var (
	ErrMovieNotFound            = errors.New("movie not found in the model store")
	ErrSimilarityUnavailable    = errors.New("content-based recommendations unavailable: similarity matrix not loaded")
	ErrCollaborativeUnavailable = errors.New("collaborative recommendations unavailable")
	ErrNoRatings                = errors.New("user has no ratings")
)

// MovieSource 模型库（*modelstore.Store）
type MovieSource interface {
	Movies() []model.Movie
	IndexOf(id int) (int, bool)
	MovieByID(id int) (model.Movie, bool)
	MovieByTitle(title string) (model.Movie, bool)
	Similarity() *modelstore.SimilarityMatrix
	Predictor() *modelstore.RatingPredictor
}

// Catalog 推荐用到的目录接口（*catalog.Client）
type Catalog interface {
	FetchPoster(ctx context.Context, movieID int) string
	FetchMetadata(ctx context.Context, movieID int) model.MovieMetadata
	FetchPopular(ctx context.Context) []model.CatalogMovie
}

// RatingsReader 读取用户评分
type RatingsReader interface {
	ReviewsByUser(ctx context.Context, userID int) ([]model.Review, error)
}

// 推荐来源
const (
	SourceContent       = "content"
	SourceContentLive   = "content_live"
	SourceCollaborative = "collaborative"
	SourceHybrid        = "hybrid"
	SourcePersonalized  = "personalized"
	SourceMood          = "mood"
	SourcePopular       = "popular"
)

const (
	contentTopN       = 5
	collaborativeTopN = 3
	personalizedSeeds = 5
	popularFallbackN  = 5
)

// Service 推荐服务
type Service struct {
	movies      MovieSource
	catalog     Catalog
	ratings     RatingsReader
	concurrency int
}

// New 创建推荐服务
func New(movies MovieSource, catalog Catalog, ratings RatingsReader) *Service {
	return &Service{
		movies:      movies,
		catalog:     catalog,
		ratings:     ratings,
		concurrency: 8,
	}
}

// Popular 热门电影，n <= 0 表示全部
func (s *Service) Popular(ctx context.Context, n int) []model.Recommendation {
	popular := s.catalog.FetchPopular(ctx)
	if n > 0 && len(popular) > n {
		popular = popular[:n]
	}
	return model.FromCatalog(popular, SourcePopular)
}

type scoredIndex struct {
	index int
	score float64
}

// rankDesc 按分数降序排序，分数相同时保持原顺序
func rankDesc(items []scoredIndex) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})
}

// withPosters 并发补全海报
func (s *Service) withPosters(ctx context.Context, recs []model.Recommendation) []model.Recommendation {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range recs {
		i := i
		g.Go(func() error {
			recs[i].Poster = s.catalog.FetchPoster(gctx, recs[i].MovieID)
			return nil
		})
	}
	g.Wait()
	return recs
}

func record(strategy string, recs []model.Recommendation, err error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case len(recs) == 0:
		outcome = "empty"
	}
	metrics.Recommendations.WithLabelValues(strategy, outcome).Inc()
}
