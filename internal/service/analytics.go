package service

import (
	"context"
	"sort"
	"strconv"

	"github.com/user/moodreel/internal/model"
	"github.com/user/moodreel/internal/repository"
)

const analyticsTopN = 10

// Count 计数项
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// GenreRating 类型的评分统计
type GenreRating struct {
	Genre   string  `json:"genre"`
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

// AnalyticsReport 统计页数据
type AnalyticsReport struct {
	TotalRatings int `json:"total_ratings"`
	// Histogram[i] 为 i+1 星的数量
	Histogram     [5]int        `json:"histogram"`
	TopRaters     []Count       `json:"top_raters"`
	TopReviewed   []Count       `json:"top_reviewed"`
	GenreCounts   []GenreRating `json:"genre_counts"`
	GenreAverages []GenreRating `json:"genre_averages"`
}

// Empty 没有任何评分
func (r *AnalyticsReport) Empty() bool {
	return r.TotalRatings == 0
}

// MovieLookup 按 ID 查电影（*modelstore.Store）
type MovieLookup interface {
	MovieByID(id int) (model.Movie, bool)
}

// AnalyticsService 评分统计
type AnalyticsService struct {
	reviews repository.ReviewStore
	movies  MovieLookup
}

// NewAnalyticsService 创建服务，movies 可为 nil（不统计类型）
func NewAnalyticsService(reviews repository.ReviewStore, movies MovieLookup) *AnalyticsService {
	return &AnalyticsService{reviews: reviews, movies: movies}
}

// Report 汇总全部评分
func (s *AnalyticsService) Report(ctx context.Context) (*AnalyticsReport, error) {
	reviews, err := s.reviews.ListReviews(ctx)
	if err != nil {
		return nil, err
	}
	return buildReport(reviews, s.movies), nil
}

func buildReport(reviews []model.Review, movies MovieLookup) *AnalyticsReport {
	report := &AnalyticsReport{TotalRatings: len(reviews)}

	raters := newCounter()
	titles := newCounter()
	genreCount := make(map[string]int)
	genreSum := make(map[string]int)
	var genreOrder []string

	for _, r := range reviews {
		if r.Rating >= 1 && r.Rating <= 5 {
			report.Histogram[r.Rating-1]++
		}
		raters.add(strconv.Itoa(r.UserID))
		titles.add(r.Title)

		if movies == nil {
			continue
		}
		m, ok := movies.MovieByID(r.MovieID)
		if !ok {
			continue
		}
		for _, g := range m.Genres {
			if _, seen := genreCount[g]; !seen {
				genreOrder = append(genreOrder, g)
			}
			genreCount[g]++
			genreSum[g] += r.Rating
		}
	}

	report.TopRaters = raters.top(analyticsTopN)
	report.TopReviewed = titles.top(analyticsTopN)

	for _, g := range genreOrder {
		report.GenreCounts = append(report.GenreCounts, GenreRating{
			Genre:   g,
			Count:   genreCount[g],
			Average: float64(genreSum[g]) / float64(genreCount[g]),
		})
	}
	report.GenreAverages = append([]GenreRating(nil), report.GenreCounts...)

	sort.SliceStable(report.GenreCounts, func(i, j int) bool {
		return report.GenreCounts[i].Count > report.GenreCounts[j].Count
	})
	sort.SliceStable(report.GenreAverages, func(i, j int) bool {
		return report.GenreAverages[i].Average > report.GenreAverages[j].Average
	})
	return report
}

// counter 按首次出现顺序计数
type counter struct {
	index  map[string]int
	counts []Count
}

func newCounter() *counter {
	return &counter{index: make(map[string]int)}
}

func (c *counter) add(label string) {
	if i, ok := c.index[label]; ok {
		c.counts[i].Count++
		return
	}
	c.index[label] = len(c.counts)
	c.counts = append(c.counts, Count{Label: label, Count: 1})
}

// top 数量降序，相同时先出现的在前
func (c *counter) top(n int) []Count {
	out := append([]Count(nil), c.counts...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
