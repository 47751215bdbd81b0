package service

import (
	"context"

	"github.com/user/moodreel/internal/logging"
	"github.com/user/moodreel/internal/model"
	"github.com/user/moodreel/internal/repository"
	"golang.org/x/sync/errgroup"
)

const recentReviewCount = 5

// DetailCatalog 详情页用到的目录接口（*catalog.Client）
type DetailCatalog interface {
	FetchDetails(ctx context.Context, movieID int) model.MovieDetails
	FetchPoster(ctx context.Context, movieID int) string
	FetchTrailer(ctx context.Context, movieID int) (string, bool)
}

// SimilarFinder 相似电影（*recommend.Service）
type SimilarFinder interface {
	ContentBased(ctx context.Context, movieID int) ([]model.Recommendation, error)
}

// SimilarMovie 带推荐理由的相似电影
type SimilarMovie struct {
	model.Recommendation
	Reason RecommendationReason `json:"reason"`
}

// MovieDetail 详情页数据
type MovieDetail struct {
	ID int `json:"id"`
	model.MovieDetails
	Poster        string         `json:"poster"`
	TrailerURL    string         `json:"trailer_url,omitempty"`
	AverageRating float64        `json:"average_rating"`
	ReviewCount   int            `json:"review_count"`
	RecentReviews []model.Review `json:"recent_reviews"`
	Similar       []SimilarMovie `json:"similar"`
}

// HasTrailer 是否有预告片
func (d *MovieDetail) HasTrailer() bool {
	return d.TrailerURL != ""
}

// MovieDetailService 电影详情
type MovieDetailService struct {
	catalog DetailCatalog
	reviews repository.ReviewStore
	movies  MovieLookup
	similar SimilarFinder
}

// NewMovieDetailService 创建服务，similar 可为 nil
func NewMovieDetailService(catalog DetailCatalog, reviews repository.ReviewStore, movies MovieLookup, similar SimilarFinder) *MovieDetailService {
	return &MovieDetailService{catalog: catalog, reviews: reviews, movies: movies, similar: similar}
}

// Detail 并发拉取详情、海报、预告片和站内评分
func (s *MovieDetailService) Detail(ctx context.Context, movieID int) (*MovieDetail, error) {
	d := &MovieDetail{ID: movieID}

	var reviews []model.Review
	var similar []model.Recommendation

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.MovieDetails = s.catalog.FetchDetails(gctx, movieID)
		return nil
	})
	g.Go(func() error {
		d.Poster = s.catalog.FetchPoster(gctx, movieID)
		return nil
	})
	g.Go(func() error {
		if url, ok := s.catalog.FetchTrailer(gctx, movieID); ok {
			d.TrailerURL = url
		}
		return nil
	})
	g.Go(func() error {
		var err error
		reviews, err = s.reviews.ReviewsByMovie(gctx, movieID)
		return err
	})
	if s.similar != nil {
		g.Go(func() error {
			recs, err := s.similar.ContentBased(gctx, movieID)
			if err != nil {
				logging.Debug().Err(err).Int("movie_id", movieID).Msg("[Detail] 无相似电影")
				return nil
			}
			similar = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 电影表里有的以电影表为准
	if m, ok := s.movies.MovieByID(movieID); ok {
		if d.Title == "" || d.Title == "Unknown" {
			d.Title = m.Title
		}
		if len(d.Genres) == 0 {
			d.Genres = m.Genres
		}
		d.attachReasons(m, similar, s.movies)
	}

	d.ReviewCount = len(reviews)
	if len(reviews) > 0 {
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		d.AverageRating = float64(sum) / float64(len(reviews))
		start := max(0, len(reviews)-recentReviewCount)
		d.RecentReviews = reviews[start:]
	}
	return d, nil
}

func (d *MovieDetail) attachReasons(seed model.Movie, recs []model.Recommendation, movies MovieLookup) {
	for _, r := range recs {
		sm := SimilarMovie{Recommendation: r}
		if target, ok := movies.MovieByID(r.MovieID); ok {
			sm.Reason = ExplainRecommendation(seed, target)
		}
		d.Similar = append(d.Similar, sm)
	}
}
