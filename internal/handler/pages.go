package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/moodreel/internal/logging"
	"github.com/user/moodreel/internal/middleware"
	"github.com/user/moodreel/internal/mood"
	"github.com/user/moodreel/internal/notice"
	"github.com/user/moodreel/internal/recommend"
	"github.com/user/moodreel/internal/service"
)

const (
	// homeMovieCount 首页热门电影数
	homeMovieCount = 3
	// genreMovieCount 类型浏览展示数
	genreMovieCount = 3
	// searchMatchCount 标题搜索展示的匹配数
	searchMatchCount = 3
	// defaultMovieCount 发现页默认展示数
	defaultMovieCount = 3
)

// GenreChips 发现页的类型快捷入口
var GenreChips = []string{"Action", "Comedy", "Drama", "Sci-Fi", "Horror", "Romance", "Thriller", "Adventure"}

// 快捷入口与目录类型名不一致的
var chipCatalogNames = map[string]string{
	"Sci-Fi": "Science Fiction",
}

// ==================== 公开页面 ====================

// Home 首页
func (h *Handler) Home(c *gin.Context) {
	ctx := c.Request.Context()

	popular := h.Catalog.FetchPopular(ctx)
	if len(popular) > homeMovieCount {
		popular = popular[:homeMovieCount]
	}

	c.HTML(http.StatusOK, "home.html", h.RenderData(c, gin.H{
		"Title":  h.Config.SiteName + " - Movie Recommendations",
		"Movies": h.cardsFromCatalog(ctx, popular, true),
	}))
}

// Discover 发现页：按电影推荐、按类型浏览、按标题搜索
func (h *Handler) Discover(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)
	sid := h.sessionID(c)

	data := gin.H{
		"Title":         "Discover - " + h.Config.SiteName,
		"AllMovies":     h.Store.Movies(),
		"Strategies":    Strategies,
		"GenreChips":    GenreChips,
		"Weight":        h.Config.ContentWeight,
		"SelectedMovie": 0,
		"Strategy":      "",
		"Genre":         "",
		"Query":         "",
	}

	if h.Store.Empty() {
		notice.Error(ctx, "Movie data is not available. Please try again later.")
		c.HTML(http.StatusOK, "discover.html", h.RenderData(c, data))
		return
	}

	switch {
	case c.Query("q") != "":
		query := strings.TrimSpace(c.Query("q"))
		data["Query"] = query
		matches := h.Store.SearchTitles(query, searchMatchCount)
		if len(matches) == 0 {
			notice.Warn(ctx, "No movies found matching %q.", query)
			break
		}
		data["Matches"] = h.cardsFromStore(ctx, matches)
		recs, err := h.Recommender.ContentBased(ctx, matches[0].ID)
		if err != nil {
			reportStrategyError(ctx, strategyRequest{Strategy: StrategyContent, MovieID: matches[0].ID}, err)
			break
		}
		data["SeedTitle"] = matches[0].Title
		data["Recommendations"] = h.cardsFromRecommendations(ctx, recs)

	case c.Query("genre") != "":
		chip := c.Query("genre")
		data["Genre"] = chip
		genreID, ok := h.genreID(ctx, chip)
		if !ok {
			notice.Warn(ctx, "Genre %s is not available right now.", chip)
			break
		}
		movies := h.Catalog.FetchByGenre(ctx, genreID)
		if len(movies) == 0 {
			notice.Warn(ctx, "No %s movies found.", chip)
			break
		}
		if len(movies) > genreMovieCount {
			movies = movies[:genreMovieCount]
		}
		data["GenreMovies"] = h.cardsFromCatalog(ctx, movies, false)

	case c.Query("movie_id") != "":
		movieID, err := strconv.Atoi(c.Query("movie_id"))
		if err != nil {
			notice.Error(ctx, "Invalid movie selection.")
			break
		}
		strategy := c.DefaultQuery("strategy", StrategyContent)
		req := strategyRequest{
			Strategy:  strategy,
			MovieID:   movieID,
			UserID:    userID,
			SessionID: sid,
		}
		if w, err := strconv.ParseFloat(c.Query("weight"), 64); err == nil && w >= 0 && w <= 1 {
			req.ContentWeight = recommend.Weight(w)
			data["Weight"] = w
		}
		data["SelectedMovie"] = movieID
		data["Strategy"] = strategy
		recs, err := h.runStrategy(ctx, req)
		if err != nil {
			break
		}
		data["Recommendations"] = h.cardsFromRecommendations(ctx, recs)

	default:
		movies := h.Store.Movies()
		if len(movies) > defaultMovieCount {
			movies = movies[:defaultMovieCount]
		}
		data["Featured"] = h.cardsFromStore(ctx, movies)
		if snap := h.Sessions.Get(sid); snap.LastStrategy != "" {
			data["Strategy"] = snap.LastStrategy
			data["SelectedMovie"] = snap.SelectedMovie
		}
	}

	c.HTML(http.StatusOK, "discover.html", h.RenderData(c, data))
}

// genreID 快捷入口名称 -> 目录类型 ID
func (h *Handler) genreID(ctx context.Context, chip string) (int, bool) {
	name := chip
	if alias, ok := chipCatalogNames[chip]; ok {
		name = alias
	}
	for id, n := range h.Catalog.FetchGenreMap(ctx) {
		if strings.EqualFold(n, name) {
			return id, true
		}
	}
	return 0, false
}

// MoodPage 心情问卷和上一次的结果
func (h *Handler) MoodPage(c *gin.Context) {
	ctx := c.Request.Context()
	snap := h.Sessions.Get(h.sessionID(c))

	data := gin.H{
		"Title":   "Mood-Based Recommendations - " + h.Config.SiteName,
		"Choices": mood.Choices,
		"Genres":  h.Catalog.FetchGenres(ctx),
		"Answers": snap.MoodAnswers,
	}
	if snap.MoodResult != nil {
		data["Result"] = snap.MoodResult
		data["Movies"] = h.cardsFromCatalog(ctx, snap.MoodResult.Movies, true)
	}
	c.HTML(http.StatusOK, "mood.html", h.RenderData(c, data))
}

// MoodSubmit 提交问卷（PRG）
func (h *Handler) MoodSubmit(c *gin.Context) {
	ctx := c.Request.Context()

	var answers mood.Answers
	if err := c.ShouldBind(&answers); err != nil {
		logging.Debug().Err(err).Msg("[Mood] 问卷校验失败")
		notice.Error(ctx, "Some answers were not recognised. Please check the form and try again.")
		h.redirectWithNotices(c, "/mood")
		return
	}

	res, err := h.Mood.Recommend(ctx, answers)
	if err != nil {
		notice.Error(ctx, "Error generating mood-based recommendations.")
		h.redirectWithNotices(c, "/mood")
		return
	}
	if !res.FellBack && len(res.Movies) > 0 {
		notice.Success(ctx, "Found %d movies matching your mood!", len(res.Movies))
	}

	h.Sessions.Update(h.sessionID(c), func(s *service.SessionSnapshot) {
		s.MoodAnswers = answers
		s.MoodResult = &res
	})
	h.redirectWithNotices(c, "/mood#results")
}

// MoodReset 清空问卷
func (h *Handler) MoodReset(c *gin.Context) {
	h.Sessions.Update(h.sessionID(c), func(s *service.SessionSnapshot) {
		s.MoodAnswers = mood.Answers{}
		s.MoodResult = nil
	})
	c.Redirect(http.StatusSeeOther, "/mood")
}

// Movie 电影详情页
func (h *Handler) Movie(c *gin.Context) {
	ctx := c.Request.Context()
	movieID, ok := movieIDParam(c)
	if !ok {
		h.NotFound(c)
		return
	}

	detail, err := h.Details.Detail(ctx, movieID)
	if err != nil {
		logging.Error().Err(err).Int("movie_id", movieID).Msg("[Movie] 加载详情失败")
		notice.Error(ctx, "Failed to load reviews for this movie.")
		detail = &service.MovieDetail{ID: movieID, MovieDetails: h.Catalog.FetchDetails(ctx, movieID)}
	}

	data := gin.H{
		"Title": detail.MovieDetails.Title + " - " + h.Config.SiteName,
		"Movie": detail,
	}
	if userID := middleware.GetUserID(c); userID > 0 {
		data["InWatchlist"] = h.inWatchlist(ctx, userID, movieID)
	}
	c.HTML(http.StatusOK, "movie.html", h.RenderData(c, data))
}

func (h *Handler) inWatchlist(ctx context.Context, userID, movieID int) bool {
	entries, err := h.Library.Watchlist(ctx, userID)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.MovieID == movieID {
			return true
		}
	}
	return false
}

// movieTitle 表单未带标题时从电影表补
func (h *Handler) movieTitle(movieID int, title string) string {
	if title = strings.TrimSpace(title); title != "" {
		return title
	}
	if m, ok := h.Store.MovieByID(movieID); ok {
		return m.Title
	}
	return "Movie " + strconv.Itoa(movieID)
}
