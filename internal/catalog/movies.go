package catalog

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/user/moodreel/internal/model"
)

const (
	defaultTitle       = "Unknown"
	defaultDescription = "No description available"
	defaultReleaseDate = "2000-01-01"
	// 列表接口不返回片长
	defaultRuntime = 120
)

type tmdbMovie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	VoteAverage float64 `json:"vote_average"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"`
	Runtime     int     `json:"runtime"`
	ReleaseDate string  `json:"release_date"`
	GenreIDs    []int   `json:"genre_ids"`
}

type tmdbList struct {
	Results *[]tmdbMovie `json:"results"`
}

type tmdbGenres struct {
	Genres *[]model.Genre `json:"genres"`
}

type tmdbDetails struct {
	Title       string        `json:"title"`
	VoteAverage float64       `json:"vote_average"`
	Overview    *string       `json:"overview"`
	PosterPath  string        `json:"poster_path"`
	Runtime     int           `json:"runtime"`
	ReleaseDate string        `json:"release_date"`
	Genres      []model.Genre `json:"genres"`
	Keywords    struct {
		Keywords []struct {
			ID int `json:"id"`
		} `json:"keywords"`
	} `json:"keywords"`
}

type tmdbVideos struct {
	Results *[]struct {
		Key  string `json:"key"`
		Site string `json:"site"`
		Type string `json:"type"`
	} `json:"results"`
}

func moviePath(id int) string {
	return "/movie/" + strconv.Itoa(id)
}

func english() url.Values {
	return url.Values{"language": {"en-US"}}
}

// FetchPopular 热门电影（第 1 页）
func (c *Client) FetchPopular(ctx context.Context) []model.CatalogMovie {
	params := english()
	params["page"] = []string{"1"}
	body, err := c.get(ctx, "popular", "/movie/popular", params, true)
	if err != nil {
		c.fail(ctx, "popular", "popular movies", err)
		return []model.CatalogMovie{}
	}
	movies, err := c.decodeList(body)
	if err != nil {
		c.fail(ctx, "popular", "popular movies", err)
		return []model.CatalogMovie{}
	}
	c.ok("popular")
	return movies
}

// FetchGenres 类型列表，保持接口返回顺序
func (c *Client) FetchGenres(ctx context.Context) []model.Genre {
	body, err := c.get(ctx, "genres", "/genre/movie/list", english(), true)
	if err != nil {
		c.fail(ctx, "genres", "genres", err)
		return []model.Genre{}
	}
	var data tmdbGenres
	if err := json.Unmarshal(body, &data); err != nil || data.Genres == nil {
		c.fail(ctx, "genres", "genres", ErrMalformed)
		return []model.Genre{}
	}
	c.ok("genres")
	return *data.Genres
}

// FetchGenreMap 类型 ID -> 名称
func (c *Client) FetchGenreMap(ctx context.Context) map[int]string {
	genres := c.FetchGenres(ctx)
	out := make(map[int]string, len(genres))
	for _, g := range genres {
		out[g.ID] = g.Name
	}
	return out
}

// FetchByGenre 某类型下的电影（第 1 页）
func (c *Client) FetchByGenre(ctx context.Context, genreID int) []model.CatalogMovie {
	params := english()
	params["with_genres"] = []string{strconv.Itoa(genreID)}
	params["page"] = []string{"1"}
	body, err := c.get(ctx, "by_genre", "/discover/movie", params, true)
	if err != nil {
		c.fail(ctx, "by_genre", "movies for genre", err)
		return []model.CatalogMovie{}
	}
	movies, err := c.decodeList(body)
	if err != nil {
		c.fail(ctx, "by_genre", "movies for genre", err)
		return []model.CatalogMovie{}
	}
	c.ok("by_genre")
	return movies
}

// FetchPoster 海报地址；任何失败都返回对应的占位图
func (c *Client) FetchPoster(ctx context.Context, movieID int) string {
	what := "poster for movie ID " + strconv.Itoa(movieID)
	body, err := c.get(ctx, "poster", moviePath(movieID), english(), true)
	if err != nil {
		c.fail(ctx, "poster", what, err)
		return posterPlaceholder(err)
	}
	var data tmdbDetails
	if err := json.Unmarshal(body, &data); err != nil {
		c.fail(ctx, "poster", what, ErrMalformed)
		return PlaceholderError
	}
	c.ok("poster")
	return c.posterURL(data.PosterPath)
}

func posterPlaceholder(err error) string {
	var se *StatusError
	if errors.As(err, &se) && se.Code == 204 {
		return PlaceholderNoPoster
	}
	switch classify(err) {
	case kindTimeout:
		return PlaceholderTimeout
	case kindNetwork:
		return PlaceholderNetworkError
	default:
		return PlaceholderError
	}
}

// FetchTrailer 第一个 YouTube 预告片地址
func (c *Client) FetchTrailer(ctx context.Context, movieID int) (string, bool) {
	what := "trailer for movie ID " + strconv.Itoa(movieID)
	body, err := c.get(ctx, "trailer", moviePath(movieID)+"/videos", english(), true)
	if err != nil {
		c.fail(ctx, "trailer", what, err)
		return "", false
	}
	var data tmdbVideos
	if err := json.Unmarshal(body, &data); err != nil || data.Results == nil {
		c.fail(ctx, "trailer", what, ErrMalformed)
		return "", false
	}
	c.ok("trailer")
	for _, v := range *data.Results {
		if v.Type == "Trailer" && v.Site == "YouTube" && v.Key != "" {
			return "https://www.youtube.com/watch?v=" + v.Key, true
		}
	}
	return "", false
}

func defaultDetails() model.MovieDetails {
	return model.MovieDetails{Rating: 0, Description: defaultDescription, Genres: []string{}}
}

// FetchDetails 评分与简介
func (c *Client) FetchDetails(ctx context.Context, movieID int) model.MovieDetails {
	what := "details for movie ID " + strconv.Itoa(movieID)
	body, err := c.get(ctx, "details", moviePath(movieID), english(), true)
	if err != nil {
		c.fail(ctx, "details", what, err)
		return defaultDetails()
	}
	var data tmdbDetails
	if err := json.Unmarshal(body, &data); err != nil {
		c.fail(ctx, "details", what, ErrMalformed)
		return defaultDetails()
	}
	c.ok("details")

	d := model.MovieDetails{
		Title:       data.Title,
		Rating:      data.VoteAverage,
		Description: defaultDescription,
		ReleaseDate: data.ReleaseDate,
		Runtime:     data.Runtime,
		Genres:      make([]string, 0, len(data.Genres)),
	}
	if data.Overview != nil {
		d.Description = *data.Overview
	}
	for _, g := range data.Genres {
		d.Genres = append(d.Genres, g.Name)
	}
	return d
}

func defaultMetadata() model.MovieMetadata {
	return model.MovieMetadata{
		Title:       defaultTitle,
		GenreIDs:    []int{},
		KeywordIDs:  []int{},
		Description: defaultDescription,
	}
}

// FetchMetadata 类型与关键词（前 5 个），用于内容相似度
func (c *Client) FetchMetadata(ctx context.Context, movieID int) model.MovieMetadata {
	what := "metadata for movie ID " + strconv.Itoa(movieID)
	params := url.Values{"append_to_response": {"keywords"}}
	body, err := c.get(ctx, "metadata", moviePath(movieID), params, true)
	if err != nil {
		c.fail(ctx, "metadata", what, err)
		return defaultMetadata()
	}
	var data tmdbDetails
	if err := json.Unmarshal(body, &data); err != nil {
		c.fail(ctx, "metadata", what, ErrMalformed)
		return defaultMetadata()
	}
	c.ok("metadata")

	md := model.MovieMetadata{
		Title:       data.Title,
		GenreIDs:    make([]int, 0, len(data.Genres)),
		KeywordIDs:  make([]int, 0, 5),
		Rating:      data.VoteAverage,
		Description: defaultDescription,
	}
	if md.Title == "" {
		md.Title = defaultTitle
	}
	if data.Overview != nil {
		md.Description = *data.Overview
	}
	for _, g := range data.Genres {
		md.GenreIDs = append(md.GenreIDs, g.ID)
	}
	for i, k := range data.Keywords.Keywords {
		if i == 5 {
			break
		}
		md.KeywordIDs = append(md.KeywordIDs, k.ID)
	}
	return md
}

// Discover 按条件发现电影，按评分降序；结果不缓存
// 失败时返回空列表，由调用方决定是否放宽条件
func (c *Client) Discover(ctx context.Context, q model.DiscoverQuery) []model.CatalogMovie {
	page := q.Page
	if page < 1 {
		page = 1
	}
	params := english()
	params["sort_by"] = []string{"vote_average.desc"}
	params["vote_count.gte"] = []string{"100"}
	params["include_adult"] = []string{strconv.FormatBool(q.Adult)}
	params["page"] = []string{strconv.Itoa(page)}
	if len(q.GenreIDs) > 0 {
		ids := make([]string, len(q.GenreIDs))
		for i, id := range q.GenreIDs {
			ids[i] = strconv.Itoa(id)
		}
		params["with_genres"] = []string{strings.Join(ids, ",")}
	}
	if q.MaxRuntime > 0 {
		params["with_runtime.lte"] = []string{strconv.Itoa(q.MaxRuntime)}
	}
	if q.MinYear > 0 {
		params["primary_release_date.gte"] = []string{strconv.Itoa(q.MinYear) + "-01-01"}
	}
	if q.MaxYear > 0 {
		params["primary_release_date.lte"] = []string{strconv.Itoa(q.MaxYear) + "-12-31"}
	}
	if q.Keywords != "" {
		params["with_keywords"] = []string{q.Keywords}
	}

	body, err := c.get(ctx, "discover", "/discover/movie", params, false)
	if err != nil {
		c.fail(ctx, "discover", "discover results", err)
		return []model.CatalogMovie{}
	}
	movies, err := c.decodeList(body)
	if err != nil {
		c.fail(ctx, "discover", "discover results", err)
		return []model.CatalogMovie{}
	}
	c.ok("discover")
	return movies
}

func (c *Client) decodeList(body []byte) ([]model.CatalogMovie, error) {
	var data tmdbList
	if err := json.Unmarshal(body, &data); err != nil || data.Results == nil {
		return nil, ErrMalformed
	}
	out := make([]model.CatalogMovie, 0, len(*data.Results))
	for _, m := range *data.Results {
		out = append(out, c.toCatalogMovie(m))
	}
	return out, nil
}

func (c *Client) toCatalogMovie(m tmdbMovie) model.CatalogMovie {
	cm := model.CatalogMovie{
		ID:          m.ID,
		Title:       m.Title,
		Rating:      m.VoteAverage,
		Description: m.Overview,
		Poster:      c.posterURL(m.PosterPath),
		Runtime:     m.Runtime,
		ReleaseDate: m.ReleaseDate,
		GenreIDs:    m.GenreIDs,
	}
	if cm.Title == "" {
		cm.Title = defaultTitle
	}
	if cm.Description == "" {
		cm.Description = defaultDescription
	}
	if cm.Runtime == 0 {
		cm.Runtime = defaultRuntime
	}
	if cm.ReleaseDate == "" {
		cm.ReleaseDate = defaultReleaseDate
	}
	if cm.GenreIDs == nil {
		cm.GenreIDs = []int{}
	}
	return cm
}
