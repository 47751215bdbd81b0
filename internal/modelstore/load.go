package modelstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/user/moodreel/internal/config"
	"github.com/user/moodreel/internal/logging"
	"github.com/user/moodreel/internal/metrics"
	"github.com/user/moodreel/internal/model"
)

// 模型文件名
const (
	MovieListFile  = "movie_list.json"
	SimilarityFile = "similarity.gob"
	RatingFile     = "svd_model.json"
)

// Options 加载参数
type Options struct {
	Dir            string
	MovieListURL   string
	SimilarityURL  string
	RatingModelURL string
	// Force 忽略本地文件，全部重新下载
	Force      bool
	Downloader *Downloader
}

// OptionsFromConfig 从应用配置构造加载参数
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Dir:            cfg.ArtifactDir,
		MovieListURL:   cfg.MovieListURL,
		SimilarityURL:  cfg.SimilarityURL,
		RatingModelURL: cfg.RatingModelURL,
	}
}

// Load 确保三个模型文件存在并解码
//
// 解码失败时强制重新下载一次再解码；仍失败的文件保持为 nil 并在 errs 中返回。
// 电影表加载失败时 Store 为空表，但不会返回 nil。
func Load(ctx context.Context, opts Options) (*Store, []error) {
	if opts.Downloader == nil {
		opts.Downloader = NewDownloader(0)
	}
	var errs []error

	movies, err := loadArtifact(ctx, opts, MovieListFile, opts.MovieListURL, DecodeMovies)
	if err != nil {
		errs = append(errs, err)
		movies = []model.Movie{}
	}

	sim, err := loadArtifact(ctx, opts, SimilarityFile, opts.SimilarityURL, DecodeSimilarity)
	if err != nil {
		errs = append(errs, err)
	} else if sim.Size() != len(movies) {
		errs = append(errs, fmt.Errorf("similarity matrix size %d does not match %d movies", sim.Size(), len(movies)))
		sim = nil
	}

	pred, err := loadArtifact(ctx, opts, RatingFile, opts.RatingModelURL, DecodePredictor)
	if err != nil {
		errs = append(errs, err)
	}

	store, err := NewStore(movies, sim, pred)
	if err != nil {
		// 尺寸已在上面校验，这里只做兜底
		errs = append(errs, err)
		store, _ = NewStore(movies, nil, pred)
	}

	logging.Info().
		Int("movies", store.Len()).
		Bool("similarity", store.HasSimilarity()).
		Bool("predictor", store.HasPredictor()).
		Int("errors", len(errs)).
		Msg("[ModelStore] 模型加载完成")
	return store, errs
}

func loadArtifact[T any](ctx context.Context, opts Options, name, rawURL string, decode func(io.Reader) (T, error)) (T, error) {
	var zero T
	path := filepath.Join(opts.Dir, name)

	if opts.Force {
		if err := opts.Downloader.Download(ctx, path, rawURL); err != nil {
			logging.Warn().Err(err).Str("file", name).Msg("[ModelStore] 强制下载失败，尝试使用本地文件")
		}
	} else if err := opts.Downloader.Ensure(ctx, path, rawURL); err != nil {
		logging.Warn().Err(err).Str("file", name).Msg("[ModelStore] 下载失败")
	}

	v, err := decodeFile(path, decode)
	if err == nil {
		metrics.ArtifactLoads.WithLabelValues(name, "ok").Inc()
		return v, nil
	}

	logging.Warn().Err(err).Str("file", name).Msg("[ModelStore] 解码失败，重新下载")
	if derr := opts.Downloader.Download(ctx, path, rawURL); derr != nil {
		metrics.ArtifactLoads.WithLabelValues(name, "error").Inc()
		return zero, fmt.Errorf("%s: %w (re-download: %v)", name, err, derr)
	}

	v, err = decodeFile(path, decode)
	if err != nil {
		metrics.ArtifactLoads.WithLabelValues(name, "error").Inc()
		return zero, fmt.Errorf("%s: %w", name, err)
	}
	metrics.ArtifactLoads.WithLabelValues(name, "redownloaded").Inc()
	return v, nil
}

func decodeFile[T any](path string, decode func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()
	return decode(f)
}
