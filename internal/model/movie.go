package model

import "strings"

// Movie 模型库中的电影（预计算电影表的一行）
type Movie struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Genres      []string `json:"genres"`
	Overview    string   `json:"overview"`
	VoteAverage float64  `json:"vote_average"`
	ReleaseDate string   `json:"release_date"`
	Runtime     int      `json:"runtime"`
}

// HasGenre 判断是否属于某个类型（忽略大小写）
func (m *Movie) HasGenre(name string) bool {
	for _, g := range m.Genres {
		if strings.EqualFold(g, name) {
			return true
		}
	}
	return false
}

// Year 上映年份，未知返回空字符串
func (m *Movie) Year() string {
	if len(m.ReleaseDate) >= 4 {
		return m.ReleaseDate[:4]
	}
	return ""
}

// CatalogMovie TMDB 列表接口（popular / discover）返回的电影
type CatalogMovie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Rating      float64 `json:"rating"`
	Description string  `json:"description"`
	Poster      string  `json:"poster"`
	Runtime     int     `json:"runtime"`
	ReleaseDate string  `json:"release_date"`
	GenreIDs    []int   `json:"genres"`
}

// Genre TMDB 类型
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MovieDetails 电影详情（评分 + 简介，外加展示用字段）
type MovieDetails struct {
	Title       string   `json:"title"`
	Rating      float64  `json:"rating"`
	Description string   `json:"description"`
	ReleaseDate string   `json:"release_date"`
	Runtime     int      `json:"runtime"`
	Genres      []string `json:"genres"`
}

// MovieMetadata 内容推荐使用的元数据
type MovieMetadata struct {
	Title       string  `json:"title"`
	GenreIDs    []int   `json:"genres"`
	KeywordIDs  []int   `json:"keywords"` // 最多 5 个
	Rating      float64 `json:"rating"`
	Description string  `json:"description"`
}

// DiscoverQuery discover 接口的过滤条件
type DiscoverQuery struct {
	GenreIDs   []int
	Adult      bool
	MaxRuntime int    // 0 表示不限
	MinYear    int    // 0 表示不限
	MaxYear    int    // 0 表示不限
	Keywords   string // 逗号分隔
	Page       int
}

// Recommendation 推荐结果中的一项
type Recommendation struct {
	MovieID int     `json:"movie_id"`
	Title   string  `json:"title"`
	Poster  string  `json:"poster"`
	Score   float64 `json:"score"`
	Source  string  `json:"source"` // content / content_live / collaborative / hybrid / personalized / mood / popular
}

// FromCatalog 将列表电影转换为推荐项
func FromCatalog(movies []CatalogMovie, source string) []Recommendation {
	out := make([]Recommendation, 0, len(movies))
	for _, m := range movies {
		out = append(out, Recommendation{
			MovieID: m.ID,
			Title:   m.Title,
			Poster:  m.Poster,
			Score:   m.Rating,
			Source:  source,
		})
	}
	return out
}
