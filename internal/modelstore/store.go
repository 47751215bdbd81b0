package modelstore

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/user/moodreel/internal/model"
)

// Store 进程内只读的模型数据：电影表、相似度矩阵、评分模型
// 相似度矩阵或评分模型可能为 nil，调用方需先用 HasSimilarity / HasPredictor 判断
type Store struct {
	movies     []model.Movie
	byID       map[int]int
	byTitle    map[string]int
	similarity *SimilarityMatrix
	predictor  *RatingPredictor
}

// NewStore 组装 Store；矩阵阶数与电影数不一致时报错
func NewStore(movies []model.Movie, sim *SimilarityMatrix, pred *RatingPredictor) (*Store, error) {
	if sim != nil && sim.Size() != len(movies) {
		return nil, fmt.Errorf("similarity matrix size %d does not match %d movies", sim.Size(), len(movies))
	}
	s := &Store{
		movies:     movies,
		byID:       make(map[int]int, len(movies)),
		byTitle:    make(map[string]int, len(movies)),
		similarity: sim,
		predictor:  pred,
	}
	for i, m := range movies {
		if _, ok := s.byID[m.ID]; !ok {
			s.byID[m.ID] = i
		}
		// 标题重复时保留第一次出现
		if _, ok := s.byTitle[m.Title]; !ok {
			s.byTitle[m.Title] = i
		}
	}
	return s, nil
}

// Movies 电影表（调用方不得修改）
func (s *Store) Movies() []model.Movie {
	return s.movies
}

// Len 电影数量
func (s *Store) Len() int {
	return len(s.movies)
}

// Empty 电影表是否为空
func (s *Store) Empty() bool {
	return len(s.movies) == 0
}

// At 按行号取电影
func (s *Store) At(i int) model.Movie {
	return s.movies[i]
}

// IndexOf 电影 ID 对应的行号
func (s *Store) IndexOf(id int) (int, bool) {
	i, ok := s.byID[id]
	return i, ok
}

// MovieByID 按 ID 查找
func (s *Store) MovieByID(id int) (model.Movie, bool) {
	i, ok := s.byID[id]
	if !ok {
		return model.Movie{}, false
	}
	return s.movies[i], true
}

// MovieByTitle 按标题精确查找，重名时返回第一部
func (s *Store) MovieByTitle(title string) (model.Movie, bool) {
	i, ok := s.byTitle[title]
	if !ok {
		return model.Movie{}, false
	}
	return s.movies[i], true
}

// Titles 去重后的标题列表，保持电影表顺序
func (s *Store) Titles() []string {
	seen := make(map[string]struct{}, len(s.movies))
	titles := make([]string, 0, len(s.movies))
	for _, m := range s.movies {
		if _, ok := seen[m.Title]; ok {
			continue
		}
		seen[m.Title] = struct{}{}
		titles = append(titles, m.Title)
	}
	return titles
}

// SearchTitles 标题子串搜索（忽略大小写），limit <= 0 表示不限
func (s *Store) SearchTitles(query string, limit int) []model.Movie {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []model.Movie
	for _, m := range s.movies {
		if strings.Contains(strings.ToLower(m.Title), q) {
			out = append(out, m)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}

// Similarity 相似度矩阵，可能为 nil
func (s *Store) Similarity() *SimilarityMatrix {
	return s.similarity
}

// Predictor 评分模型，可能为 nil
func (s *Store) Predictor() *RatingPredictor {
	return s.predictor
}

func (s *Store) HasSimilarity() bool { return s.similarity != nil }

func (s *Store) HasPredictor() bool { return s.predictor != nil }

// DecodeMovies 读取 JSON 格式的电影表
func DecodeMovies(r io.Reader) ([]model.Movie, error) {
	var movies []model.Movie
	if err := json.NewDecoder(r).Decode(&movies); err != nil {
		return nil, fmt.Errorf("decode movie list: %w", err)
	}
	if len(movies) == 0 {
		return nil, fmt.Errorf("movie list is empty")
	}
	return movies, nil
}
