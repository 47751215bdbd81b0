package mood

import (
	"context"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/user/moodreel/internal/logging"
	"github.com/user/moodreel/internal/metrics"
	"github.com/user/moodreel/internal/model"
	"github.com/user/moodreel/internal/notice"
)

// ResultSize 每次返回的电影数
const ResultSize = 5

// 随机页码范围 [1, maxRandomPage]
const maxRandomPage = 4

// Catalog 心情推荐用到的目录接口（*catalog.Client）
type Catalog interface {
	Discover(ctx context.Context, q model.DiscoverQuery) []model.CatalogMovie
	FetchGenreMap(ctx context.Context) map[int]string
	FetchPopular(ctx context.Context) []model.CatalogMovie
}

// Result 心情推荐结果
type Result struct {
	Movies []model.CatalogMovie `json:"movies"`
	Query  Query                `json:"query"`
	// Variant 命中的条件序号（1-4），0 表示回退到热门
	Variant  int  `json:"variant"`
	FellBack bool `json:"fell_back"`
}

// Engine 心情推荐引擎
type Engine struct {
	catalog Catalog
	mu      sync.Mutex
	rng     *rand.Rand
}

// Option 引擎选项
type Option func(*Engine)

// WithRand 指定随机源（测试用）
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// NewEngine 创建引擎
func NewEngine(catalog Catalog, opts ...Option) *Engine {
	now := uint64(time.Now().UnixNano())
	e := &Engine{
		catalog: catalog,
		rng:     rand.New(rand.NewPCG(now, now>>1|1)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recommend 按问卷发现电影
// 依次尝试四种条件，第一个有结果的取前 5 部打乱后返回；全部为空时回退到热门电影
func (e *Engine) Recommend(ctx context.Context, a Answers) (Result, error) {
	if err := a.Validate(); err != nil {
		return Result{}, err
	}

	var genreMap map[int]string
	if a.Genre != "" {
		genreMap = e.catalog.FetchGenreMap(ctx)
	}
	q := BuildQuery(a, genreMap)

	for i, dq := range q.Variants(e.randomPage()) {
		movies := e.catalog.Discover(ctx, dq)
		if len(movies) == 0 {
			continue
		}
		if len(movies) > ResultSize {
			movies = movies[:ResultSize]
		}
		picked := make([]model.CatalogMovie, len(movies))
		copy(picked, movies)
		e.shuffle(picked)

		variant := i + 1
		metrics.MoodVariant.WithLabelValues(strconv.Itoa(variant)).Inc()
		logging.Debug().Int("variant", variant).Ints("genres", q.GenreIDs).Int("results", len(picked)).Msg("[Mood] 发现条件命中")
		return Result{Movies: picked, Query: q, Variant: variant}, nil
	}

	notice.Warn(ctx, "No movies found matching your mood-based criteria. Showing popular movies.")
	metrics.MoodVariant.WithLabelValues("0").Inc()
	return Result{Movies: e.catalog.FetchPopular(ctx), Query: q, FellBack: true}, nil
}

func (e *Engine) randomPage() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.IntN(maxRandomPage) + 1
}

func (e *Engine) shuffle(movies []model.CatalogMovie) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rng.Shuffle(len(movies), func(i, j int) {
		movies[i], movies[j] = movies[j], movies[i]
	})
}
