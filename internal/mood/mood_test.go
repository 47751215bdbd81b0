package mood

import (
	"context"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/user/moodreel/internal/model"
	"github.com/user/moodreel/internal/notice"
)

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

func TestBuildQuery(t *testing.T) {
	genreMap := map[int]string{28: "Action", 27: "Horror", 35: "Comedy"}

	tests := []struct {
		name       string
		answers    Answers
		wantRaw    []int
		wantGenres []int
		check      func(t *testing.T, q Query)
	}{
		{
			name:       "no answers falls back to comedy and drama",
			answers:    Answers{},
			wantRaw:    nil,
			wantGenres: []int{Comedy, Drama},
		},
		{
			name:       "mood adds primary triplet and secondary genre",
			answers:    Answers{Mood: "Happy"},
			wantRaw:    []int{Comedy, Animation, Adventure, Family},
			wantGenres: []int{Comedy, Animation, Adventure},
		},
		{
			name:       "motivation sets keywords",
			answers:    Answers{Motivation: "Yes"},
			wantRaw:    []int{Drama, Documentary},
			wantGenres: []int{Drama, Documentary},
			check: func(t *testing.T, q Query) {
				if q.Keywords != "inspirational,motivational" {
					t.Errorf("keywords = %q", q.Keywords)
				}
			},
		},
		{
			name:       "family audience wins over date night",
			answers:    Answers{WatchingWith: "Kids", Occasion: "Date Night"},
			wantRaw:    []int{Animation, Family},
			wantGenres: []int{Animation, Family},
			check: func(t *testing.T, q Query) {
				if !q.FamilyAudience || q.Adult {
					t.Errorf("expected family audience without adult content: %+v", q)
				}
			},
		},
		{
			name:       "romantic adds romance and comedy",
			answers:    Answers{Romantic: "Yes"},
			wantRaw:    []int{Romance, Comedy},
			wantGenres: []int{Romance, Comedy},
		},
		{
			name:       "genre name resolved through the genre map",
			answers:    Answers{Genre: "Horror", Tone: "Epic"},
			wantRaw:    []int{27, Adventure, Action},
			wantGenres: []int{27, Adventure, Action},
		},
		{
			name:       "unknown genre name is ignored",
			answers:    Answers{Genre: "Western"},
			wantRaw:    nil,
			wantGenres: []int{Comedy, Drama},
		},
		{
			name:       "duplicates removed in first-seen order",
			answers:    Answers{Mood: "Sad", Tone: "Emotional"},
			wantRaw:    []int{Drama, Romance, Documentary, History, Drama, Romance},
			wantGenres: []int{Drama, Romance, Documentary},
		},
		{
			name:       "time and release bounds",
			answers:    Answers{Time: "Less than 1 hour", Release: "Classics (pre-2010)", Pace: "Slow-paced"},
			wantGenres: []int{Comedy, Drama},
			check: func(t *testing.T, q Query) {
				if q.MaxRuntime != 90 || q.MaxYear != 2010 || q.MinYear != 0 || q.Pace != "Slow-paced" {
					t.Errorf("unexpected bounds: %+v", q)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := BuildQuery(tt.answers, genreMap)
			if !equalInts(q.RawGenres, tt.wantRaw) {
				t.Errorf("RawGenres = %v, want %v", q.RawGenres, tt.wantRaw)
			}
			if !equalInts(q.GenreIDs, tt.wantGenres) {
				t.Errorf("GenreIDs = %v, want %v", q.GenreIDs, tt.wantGenres)
			}
			if len(q.GenreIDs) > MaxGenres {
				t.Errorf("more than %d genres: %v", MaxGenres, q.GenreIDs)
			}
			if tt.check != nil {
				tt.check(t, q)
			}

			again := BuildQuery(tt.answers, genreMap)
			if !equalInts(again.RawGenres, q.RawGenres) || !equalInts(again.GenreIDs, q.GenreIDs) {
				t.Error("BuildQuery is not deterministic")
			}
		})
	}
}

func TestAdultPriority(t *testing.T) {
	tests := []struct {
		name    string
		answers Answers
		want    bool
	}{
		{"default off", Answers{}, false},
		{"mature yes", Answers{Mature: "Yes"}, true},
		{"mature yes overrides family audience", Answers{Mature: "Yes", WatchingWith: "Family"}, true},
		{"mature no", Answers{Mature: "No", Occasion: "Party"}, false},
		{"family night without maturity answer", Answers{Occasion: "Family Night"}, false},
		{"neutral keeps default", Answers{Mature: "Neutral"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildQuery(tt.answers, nil).Adult; got != tt.want {
				t.Errorf("Adult = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Answers{Mood: "Angry", Occasion: "Date Night", Time: "2+ hours", Release: "New (post-2010)", Tone: "Thought-provoking"}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid answers rejected: %v", err)
	}
	if err := (Answers{}).Validate(); err != nil {
		t.Errorf("empty answers rejected: %v", err)
	}
	if err := (Answers{Mood: "Hungry"}).Validate(); err == nil {
		t.Error("unknown mood accepted")
	}
	if err := (Answers{Occasion: "Date"}).Validate(); err == nil {
		t.Error("partial occasion accepted")
	}
}

func TestVariants(t *testing.T) {
	q := Query{GenreIDs: []int{35}, MaxRuntime: 90, MinYear: 2010, Keywords: "k", Adult: true}
	vs := q.Variants(3)
	if len(vs) != 4 {
		t.Fatalf("expected 4 variants, got %d", len(vs))
	}
	if vs[0].MaxRuntime != 90 || vs[0].Keywords != "k" || vs[0].MinYear != 2010 || vs[0].Page != 1 {
		t.Errorf("variant 1 = %+v", vs[0])
	}
	if vs[1].MaxRuntime != 0 || vs[1].Keywords != "" || vs[1].MinYear != 2010 || vs[1].Page != 1 {
		t.Errorf("variant 2 = %+v", vs[1])
	}
	if vs[2].Page != 3 || vs[2].MinYear != 2010 {
		t.Errorf("variant 3 = %+v", vs[2])
	}
	if vs[3].MinYear != 0 || vs[3].MaxRuntime != 0 || !vs[3].Adult || vs[3].Page != 1 {
		t.Errorf("variant 4 = %+v", vs[3])
	}
}

type fakeCatalog struct {
	discover func(q model.DiscoverQuery) []model.CatalogMovie
	calls    []model.DiscoverQuery
	popular  []model.CatalogMovie
}

func (f *fakeCatalog) Discover(_ context.Context, q model.DiscoverQuery) []model.CatalogMovie {
	f.calls = append(f.calls, q)
	return f.discover(q)
}

func (f *fakeCatalog) FetchGenreMap(context.Context) map[int]string {
	return map[int]string{28: "Action"}
}

func (f *fakeCatalog) FetchPopular(context.Context) []model.CatalogMovie {
	return f.popular
}

func catalogMovies(ids ...int) []model.CatalogMovie {
	out := make([]model.CatalogMovie, len(ids))
	for i, id := range ids {
		out[i] = model.CatalogMovie{ID: id}
	}
	return out
}

func movieIDs(movies []model.CatalogMovie) []int {
	out := make([]int, len(movies))
	for i, m := range movies {
		out[i] = m.ID
	}
	sort.Ints(out)
	return out
}

func testEngine(cat *fakeCatalog) *Engine {
	return NewEngine(cat, WithRand(rand.New(rand.NewPCG(1, 2))))
}

func TestRecommendStopsAtFirstVariantWithResults(t *testing.T) {
	cat := &fakeCatalog{discover: func(q model.DiscoverQuery) []model.CatalogMovie {
		if q.MaxRuntime > 0 || q.Keywords != "" {
			return nil
		}
		return catalogMovies(1, 2, 3)
	}}

	res, err := testEngine(cat).Recommend(context.Background(), Answers{Mood: "Happy", Time: "1-2 hours", Motivation: "Yes"})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if res.Variant != 2 || res.FellBack {
		t.Errorf("Variant = %d, FellBack = %v", res.Variant, res.FellBack)
	}
	if got := movieIDs(res.Movies); !equalInts(got, []int{1, 2, 3}) {
		t.Errorf("movies = %v", got)
	}
	if len(cat.calls) != 2 {
		t.Errorf("expected 2 discover calls, got %d", len(cat.calls))
	}
}

func TestRecommendTakesFiveAndShuffles(t *testing.T) {
	cat := &fakeCatalog{discover: func(model.DiscoverQuery) []model.CatalogMovie {
		return catalogMovies(1, 2, 3, 4, 5, 6, 7, 8)
	}}

	res, err := testEngine(cat).Recommend(context.Background(), Answers{Mood: "Bored"})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if res.Variant != 1 {
		t.Errorf("Variant = %d", res.Variant)
	}
	if got := movieIDs(res.Movies); !equalInts(got, []int{1, 2, 3, 4, 5}) {
		t.Errorf("expected the first five results, got %v", got)
	}
}

func TestRecommendRandomPageInRange(t *testing.T) {
	cat := &fakeCatalog{discover: func(model.DiscoverQuery) []model.CatalogMovie { return nil }}
	e := testEngine(cat)
	for i := 0; i < 20; i++ {
		cat.calls = nil
		e.Recommend(context.Background(), Answers{})
		if len(cat.calls) != 4 {
			t.Fatalf("expected 4 discover calls, got %d", len(cat.calls))
		}
		if p := cat.calls[2].Page; p < 1 || p > 4 {
			t.Errorf("random page %d out of range", p)
		}
	}
}

func TestRecommendFallsBackToPopular(t *testing.T) {
	cat := &fakeCatalog{
		discover: func(model.DiscoverQuery) []model.CatalogMovie { return nil },
		popular:  catalogMovies(100, 101),
	}

	ctx, nc := notice.NewContext(context.Background())
	res, err := testEngine(cat).Recommend(ctx, Answers{Mood: "Angry", Genre: "Action"})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if !res.FellBack || res.Variant != 0 {
		t.Errorf("expected popular fallback, got %+v", res)
	}
	if got := movieIDs(res.Movies); !equalInts(got, []int{100, 101}) {
		t.Errorf("movies = %v", got)
	}
	if !nc.Has(notice.LevelWarning) {
		t.Error("expected a warning notice")
	}
}

func TestRecommendRejectsInvalidAnswers(t *testing.T) {
	cat := &fakeCatalog{discover: func(model.DiscoverQuery) []model.CatalogMovie { return nil }}
	if _, err := testEngine(cat).Recommend(context.Background(), Answers{Time: "forever"}); err == nil {
		t.Error("expected validation error")
	}
	if len(cat.calls) != 0 {
		t.Error("invalid answers must not reach the catalog")
	}
}
