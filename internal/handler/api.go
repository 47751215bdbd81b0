package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/moodreel/internal/logging"
	"github.com/user/moodreel/internal/middleware"
	"github.com/user/moodreel/internal/mood"
	"github.com/user/moodreel/internal/recommend"
	"github.com/user/moodreel/internal/service"
	"github.com/user/moodreel/internal/utils"
)

// 搜索接口默认/最大返回数
const (
	searchDefaultLimit = 10
	searchMaxLimit     = 50
)

// ==================== JSON API ====================

// RecommendationsAPI GET /api/recommendations/:strategy?movie_id=&weight=
func (h *Handler) RecommendationsAPI(c *gin.Context) {
	ctx := c.Request.Context()
	strategy := c.Param("strategy")
	userID := middleware.GetUserID(c)

	req := strategyRequest{
		Strategy:  strategy,
		UserID:    userID,
		SessionID: h.sessionID(c),
	}

	switch strategy {
	case StrategyContent, StrategyHybrid:
		movieID, err := strconv.Atoi(c.Query("movie_id"))
		if err != nil || movieID <= 0 {
			utils.BadRequest(c, "movie_id is required.")
			return
		}
		req.MovieID = movieID
	case StrategyPersonalized:
		if userID <= 0 {
			utils.Unauthorized(c, "")
			return
		}
	}

	if raw := c.Query("weight"); raw != "" {
		w, err := strconv.ParseFloat(raw, 64)
		if err != nil || w < 0 || w > 1 {
			utils.BadRequest(c, "weight must be a number between 0 and 1.")
			return
		}
		req.ContentWeight = recommend.Weight(w)
	}

	recs, err := h.runStrategy(ctx, req)
	switch {
	case err == nil:
		utils.Success(c, recs)
	case errors.Is(err, ErrUnknownStrategy):
		utils.NotFound(c, "Unknown recommendation strategy.")
	case errors.Is(err, recommend.ErrMovieNotFound):
		utils.NotFound(c, "Movie not found.")
	case errors.Is(err, recommend.ErrCollaborativeUnavailable), errors.Is(err, recommend.ErrSimilarityUnavailable):
		utils.Unavailable(c, err.Error())
	default:
		utils.InternalServerError(c, "")
	}
}

// MoodAPI POST /api/mood
func (h *Handler) MoodAPI(c *gin.Context) {
	var answers mood.Answers
	if err := c.ShouldBindJSON(&answers); err != nil {
		utils.BadRequest(c, "Invalid mood answers.")
		return
	}

	res, err := h.Mood.Recommend(c.Request.Context(), answers)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	h.Sessions.Update(h.sessionID(c), func(s *service.SessionSnapshot) {
		s.MoodAnswers = answers
		s.MoodResult = &res
	})
	utils.Success(c, res)
}

// SearchAPI GET /api/movies/search?q=&limit=
func (h *Handler) SearchAPI(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		utils.BadRequest(c, "q is required.")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(searchDefaultLimit)))
	if err != nil || limit <= 0 {
		limit = searchDefaultLimit
	}
	limit = min(limit, searchMaxLimit)

	utils.Success(c, h.Store.SearchTitles(query, limit))
}

// MovieAPI GET /api/movies/:id
func (h *Handler) MovieAPI(c *gin.Context) {
	movieID, ok := movieIDParam(c)
	if !ok {
		utils.BadRequest(c, "Invalid movie id.")
		return
	}

	detail, err := h.Details.Detail(c.Request.Context(), movieID)
	if err != nil {
		logging.Error().Err(err).Int("movie_id", movieID).Msg("[API] 加载电影详情失败")
		utils.InternalServerError(c, "")
		return
	}
	utils.Success(c, detail)
}

// AnalyticsAPI GET /api/analytics
func (h *Handler) AnalyticsAPI(c *gin.Context) {
	report, err := h.Analytics.Report(c.Request.Context())
	if err != nil {
		logging.Error().Err(err).Msg("[API] 统计失败")
		utils.InternalServerError(c, "")
		return
	}
	utils.Success(c, report)
}
