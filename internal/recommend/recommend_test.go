package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/user/moodreel/internal/model"
	"github.com/user/moodreel/internal/modelstore"
	"github.com/user/moodreel/internal/notice"
)

type fakeCatalog struct {
	mu       sync.Mutex
	genres   map[int][]int
	popular  []model.CatalogMovie
	metaHits int
}

func (f *fakeCatalog) FetchPoster(_ context.Context, id int) string {
	return fmt.Sprintf("poster/%d", id)
}

func (f *fakeCatalog) FetchMetadata(_ context.Context, id int) model.MovieMetadata {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metaHits++
	return model.MovieMetadata{Title: "m", GenreIDs: f.genres[id], KeywordIDs: []int{}}
}

func (f *fakeCatalog) FetchPopular(context.Context) []model.CatalogMovie {
	return f.popular
}

type fakeRatings map[int][]model.Review

func (f fakeRatings) ReviewsByUser(_ context.Context, uid int) ([]model.Review, error) {
	return f[uid], nil
}

func testMovies() []model.Movie {
	return []model.Movie{
		{ID: 1, Title: "A"},
		{ID: 2, Title: "B"},
		{ID: 3, Title: "C"},
		{ID: 4, Title: "D"},
		{ID: 5, Title: "E"},
		{ID: 6, Title: "F"},
		{ID: 7, Title: "G"},
	}
}

// testMatrix 第 0 行给定，其余行为单位向量
func testMatrix(row0 []float32) *modelstore.SimilarityMatrix {
	n := len(row0)
	rows := make([][]float32, n)
	rows[0] = row0
	for i := 1; i < n; i++ {
		rows[i] = make([]float32, n)
		rows[i][i] = 1
		rows[i][0] = row0[i]
	}
	m, _ := modelstore.NewSimilarityMatrix(rows)
	return m
}

func testPredictor() *modelstore.RatingPredictor {
	return &modelstore.RatingPredictor{
		GlobalMean:  3,
		RatingMin:   1,
		RatingMax:   5,
		UserIndex:   map[string]int{"1": 0},
		ItemIndex:   map[string]int{"1": 0, "2": 1, "3": 2, "4": 3, "5": 4, "6": 5, "7": 6},
		UserBias:    []float64{0},
		ItemBias:    []float64{0.1, 0.7, 0.3, 0.9, 0.5, 0.2, 0.8},
		UserFactors: [][]float64{{0}},
		ItemFactors: [][]float64{{0}, {0}, {0}, {0}, {0}, {0}, {0}},
	}
}

func newService(t *testing.T, sim *modelstore.SimilarityMatrix, pred *modelstore.RatingPredictor, cat *fakeCatalog, ratings fakeRatings) *Service {
	t.Helper()
	store, err := modelstore.NewStore(testMovies(), sim, pred)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if cat == nil {
		cat = &fakeCatalog{}
	}
	if ratings == nil {
		ratings = fakeRatings{}
	}
	return New(store, cat, ratings)
}

func ids(recs []model.Recommendation) []int {
	out := make([]int, len(recs))
	for i, r := range recs {
		out[i] = r.MovieID
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestContentBasedExcludesSeed(t *testing.T) {
	// 第 3 部与种子同分，仍应排除种子本身
	sim := testMatrix([]float32{1, 0.9, 1, 0.2, 0.5, 0.7, 0.1})
	svc := newService(t, sim, nil, nil, nil)

	recs, err := svc.ContentBased(context.Background(), 1)
	if err != nil {
		t.Fatalf("ContentBased: %v", err)
	}
	want := []int{3, 2, 6, 5, 4}
	if got := ids(recs); !equalInts(got, want) {
		t.Errorf("ContentBased = %v, want %v", got, want)
	}
	for _, r := range recs {
		if r.MovieID == 1 {
			t.Error("seed movie must not be recommended")
		}
		if r.Poster != fmt.Sprintf("poster/%d", r.MovieID) {
			t.Errorf("poster not resolved: %+v", r)
		}
	}
}

func TestContentBasedErrors(t *testing.T) {
	svc := newService(t, nil, nil, nil, nil)
	if _, err := svc.ContentBased(context.Background(), 1); !errors.Is(err, ErrSimilarityUnavailable) {
		t.Errorf("expected ErrSimilarityUnavailable, got %v", err)
	}
	if _, err := svc.ContentBased(context.Background(), 999); !errors.Is(err, ErrMovieNotFound) {
		t.Errorf("expected ErrMovieNotFound, got %v", err)
	}
	if _, err := svc.ContentBasedByTitle(context.Background(), "missing"); !errors.Is(err, ErrMovieNotFound) {
		t.Errorf("expected ErrMovieNotFound, got %v", err)
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b []int
		want float64
	}{
		{"both empty", nil, nil, 0},
		{"one empty", []int{1, 2}, nil, 0},
		{"identical", []int{1, 2}, []int{2, 1}, 1},
		{"partial", []int{1, 2, 3}, []int{3, 4}, 0.25},
		{"disjoint", []int{1}, []int{2}, 0},
		{"duplicates ignored", []int{1, 1, 2}, []int{2, 2}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ab, ba := Jaccard(tt.a, tt.b), Jaccard(tt.b, tt.a)
			if ab != ba {
				t.Errorf("not symmetric: %v vs %v", ab, ba)
			}
			if ab < 0 || ab > 1 {
				t.Errorf("out of range: %v", ab)
			}
			if math.Abs(ab-tt.want) > 1e-9 {
				t.Errorf("Jaccard = %v, want %v", ab, tt.want)
			}
		})
	}
}

func TestContentBasedLive(t *testing.T) {
	cat := &fakeCatalog{genres: map[int][]int{
		1: {28, 12},
		2: {35},
		3: {28, 12},
		4: {28},
		5: {28, 12, 878},
		6: {},
		7: {28},
	}}
	svc := newService(t, nil, nil, cat, nil)

	recs, err := svc.ContentBasedLive(context.Background(), 1, 4)
	if err != nil {
		t.Fatalf("ContentBasedLive: %v", err)
	}
	// 3: 1.0, 5: 2/3, 4 和 7: 0.5（保持电影表顺序）
	want := []int{3, 5, 4, 7}
	if got := ids(recs); !equalInts(got, want) {
		t.Errorf("ContentBasedLive = %v, want %v", got, want)
	}
	if cat.metaHits != 7 {
		t.Errorf("expected one metadata call per movie, got %d", cat.metaHits)
	}
}

func TestCollaborativeWithoutRatingsIsUnavailable(t *testing.T) {
	svc := newService(t, nil, testPredictor(), nil, nil)

	recs, err := svc.Collaborative(context.Background(), 42)
	if !errors.Is(err, ErrCollaborativeUnavailable) || !errors.Is(err, ErrNoRatings) {
		t.Fatalf("expected unavailable/no-ratings error, got %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected no recommendations, got %v", recs)
	}

	noModel := newService(t, nil, nil, nil, fakeRatings{1: {{UserID: 1, MovieID: 2, Rating: 5}}})
	if _, err := noModel.Collaborative(context.Background(), 1); !errors.Is(err, ErrCollaborativeUnavailable) {
		t.Errorf("expected unavailable without model, got %v", err)
	}
}

func TestCollaborativeExcludesRated(t *testing.T) {
	ratings := fakeRatings{1: {
		{UserID: 1, MovieID: 4, Rating: 5},
		{UserID: 1, MovieID: 4, Rating: 3},
	}}
	svc := newService(t, nil, testPredictor(), nil, ratings)

	recs, err := svc.Collaborative(context.Background(), 1)
	if err != nil {
		t.Fatalf("Collaborative: %v", err)
	}
	// 4 已评分被排除；剩余按 item bias 降序：7 (0.8), 2 (0.7), 5 (0.5)
	want := []int{7, 2, 5}
	if got := ids(recs); !equalInts(got, want) {
		t.Errorf("Collaborative = %v, want %v", got, want)
	}
}

func TestLinspace(t *testing.T) {
	if got := linspace(1, 0.5, 1); len(got) != 1 || got[0] != 1 {
		t.Errorf("linspace n=1 = %v", got)
	}
	got := linspace(1, 0.5, 3)
	want := []float64{1, 0.75, 0.5}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("linspace = %v, want %v", got, want)
		}
	}
}

func TestBlendContentOnlyScore(t *testing.T) {
	content := []model.Recommendation{{MovieID: 10}, {MovieID: 11}, {MovieID: 12}}
	collab := []model.Recommendation{{MovieID: 11}, {MovieID: 20}}

	tests := []struct {
		name string
		w    float64
	}{
		{"default weight", 0.5},
		{"content heavy", 0.8},
		{"content only", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := blend(content, collab, tt.w, 0)
			scores := map[int]float64{}
			for _, r := range out {
				scores[r.MovieID] = r.Score
			}
			// 10 与 12 不在协同列表中：分数只有内容部分
			if math.Abs(scores[10]-tt.w*1.0) > 1e-9 {
				t.Errorf("score(10) = %v, want %v", scores[10], tt.w*1.0)
			}
			if math.Abs(scores[12]-tt.w*0.5) > 1e-9 {
				t.Errorf("score(12) = %v, want %v", scores[12], tt.w*0.5)
			}
			if math.Abs(scores[11]-(tt.w*0.75+(1-tt.w)*1.0)) > 1e-9 {
				t.Errorf("score(11) = %v", scores[11])
			}
		})
	}
}

func TestBlendExcludesSeedAndBreaksTiesByAppearance(t *testing.T) {
	content := []model.Recommendation{{MovieID: 1}, {MovieID: 2}}
	collab := []model.Recommendation{{MovieID: 3}, {MovieID: 4}}

	out := blend(content, collab, 0.5, 2)
	// 1 和 3 同为 0.5，按出现顺序内容列表在前；4 为 0.25
	want := []int{1, 3, 4}
	if got := ids(out); !equalInts(got, want) {
		t.Errorf("blend = %v, want %v", got, want)
	}
	for _, r := range out {
		if r.Source != SourceHybrid {
			t.Errorf("source = %q", r.Source)
		}
	}
}

func TestHybridUsesBothSides(t *testing.T) {
	sim := testMatrix([]float32{1, 0.9, 0.8, 0.1, 0.1, 0.1, 0.1})
	ratings := fakeRatings{1: {{UserID: 1, MovieID: 5, Rating: 4}}}
	svc := newService(t, sim, testPredictor(), nil, ratings)

	recs := svc.Hybrid(context.Background(), HybridRequest{MovieID: 1, UserID: 1})
	if len(recs) != 3 {
		t.Fatalf("expected 3 recommendations, got %v", recs)
	}
	for _, r := range recs {
		if r.MovieID == 1 {
			t.Error("seed must be excluded")
		}
	}
	// 内容 [2 3 4 5 6]，协同 [4 7 2]
	// 4: 0.5*0.75 + 0.5*1.0 = 0.875；2: 0.5*1.0 + 0.5*0.5 = 0.75；3: 0.5*0.875 = 0.4375
	if got := ids(recs); !equalInts(got, []int{4, 2, 3}) {
		t.Errorf("Hybrid = %v, want [4 2 3]", got)
	}
}

func TestHybridFallbacks(t *testing.T) {
	popular := []model.CatalogMovie{{ID: 100, Title: "P1"}, {ID: 101, Title: "P2"}, {ID: 102, Title: "P3"}, {ID: 103, Title: "P4"}}
	cat := &fakeCatalog{popular: popular}
	svc := newService(t, nil, nil, cat, nil)

	ctx, nc := notice.NewContext(context.Background())
	recs := svc.Hybrid(ctx, HybridRequest{MovieID: 999, UserID: 1})
	if got := ids(recs); !equalInts(got, []int{100, 101, 102}) {
		t.Errorf("popular fallback = %v", got)
	}
	if !nc.Has(notice.LevelWarning) {
		t.Error("expected a fallback warning")
	}

	mood := []model.CatalogMovie{{ID: 200, Title: "M1"}}
	recs = svc.Hybrid(context.Background(), HybridRequest{MovieID: 999, UserID: 1, Fallback: mood})
	if len(recs) != 1 || recs[0].MovieID != 200 || recs[0].Source != SourceMood {
		t.Errorf("mood fallback = %+v", recs)
	}
}

func TestTopRated(t *testing.T) {
	reviews := []model.Review{
		{MovieID: 1, Rating: 3},
		{MovieID: 2, Rating: 5},
		{MovieID: 3, Rating: 5},
		{MovieID: 2, Rating: 4},
		{MovieID: 4, Rating: 1},
	}
	if got := TopRated(reviews, 3); !equalInts(got, []int{2, 3, 1}) {
		t.Errorf("TopRated = %v", got)
	}
}

func TestPersonalized(t *testing.T) {
	sim := testMatrix([]float32{1, 0.9, 0.8, 0.7, 0.6, 0.5, 0.4})
	ratings := fakeRatings{1: {{UserID: 1, MovieID: 1, Rating: 5}}}
	popular := []model.CatalogMovie{{ID: 100}, {ID: 101}}
	svc := newService(t, sim, nil, &fakeCatalog{popular: popular}, ratings)

	recs, err := svc.Personalized(context.Background(), 1)
	if err != nil {
		t.Fatalf("Personalized: %v", err)
	}
	if got := ids(recs); !equalInts(got, []int{2, 3, 4, 5, 6}) {
		t.Errorf("Personalized = %v", got)
	}

	ctx, nc := notice.NewContext(context.Background())
	recs, err = svc.Personalized(ctx, 2)
	if err != nil {
		t.Fatalf("Personalized: %v", err)
	}
	if got := ids(recs); !equalInts(got, []int{100, 101}) || recs[0].Source != SourcePopular {
		t.Errorf("fallback = %+v", recs)
	}
	if !nc.Has(notice.LevelWarning) {
		t.Error("expected a warning for a user without ratings")
	}
}
