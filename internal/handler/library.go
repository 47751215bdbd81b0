package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/user/moodreel/internal/logging"
	"github.com/user/moodreel/internal/middleware"
	"github.com/user/moodreel/internal/model"
	"github.com/user/moodreel/internal/notice"
	"github.com/user/moodreel/internal/service"
)

// ==================== 用户中心（需要登录）====================

// Watchlist 片单页面，顺带检查新片提醒
func (h *Handler) Watchlist(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	if _, err := h.Notifications.Check(ctx, userID); err != nil {
		logging.Warn().Err(err).Int("user_id", userID).Msg("[Notify] 检查新片提醒失败")
	}

	entries, err := h.Library.Watchlist(ctx, userID)
	if err != nil {
		logging.Error().Err(err).Int("user_id", userID).Msg("[Watchlist] 读取片单失败")
		notice.Error(ctx, "Failed to load your watchlist.")
	}

	data := gin.H{
		"Title":   "Watchlist - " + h.Config.SiteName,
		"Entries": entries,
	}
	if len(entries) > 0 {
		recs := make([]model.Recommendation, len(entries))
		for i, e := range entries {
			recs[i] = model.Recommendation{MovieID: e.MovieID, Title: e.Title}
		}
		data["Movies"] = h.cardsFromRecommendations(ctx, recs)
		data["ShareText"] = service.ShareText(entries)
	}
	c.HTML(http.StatusOK, "watchlist.html", h.RenderData(c, data))
}

// History 行为历史页面
func (h *Handler) History(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	activity, err := h.Library.History(ctx, userID)
	if err != nil {
		logging.Error().Err(err).Int("user_id", userID).Msg("[History] 读取行为日志失败")
		notice.Error(ctx, "Failed to load your history.")
	}

	c.HTML(http.StatusOK, "history.html", h.RenderData(c, gin.H{
		"Title":    "History - " + h.Config.SiteName,
		"Activity": activity,
	}))
}

// Profile 个人资料页面
func (h *Handler) Profile(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	profile, err := h.Profiles.Profile(ctx, userID)
	if err != nil {
		logging.Error().Err(err).Int("user_id", userID).Msg("[Profile] 读取资料失败")
		notice.Error(ctx, "Failed to load your profile.")
	}
	if err == nil && profile == nil {
		// token 有效但账号已不存在
		h.SignOut(c)
		return
	}

	c.HTML(http.StatusOK, "profile.html", h.RenderData(c, gin.H{
		"Title":   "Profile - " + h.Config.SiteName,
		"Profile": profile,
	}))
}

// AnalyticsPage 评分统计页面
func (h *Handler) AnalyticsPage(c *gin.Context) {
	ctx := c.Request.Context()

	report, err := h.Analytics.Report(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("[Analytics] 统计失败")
		notice.Error(ctx, "Failed to load analytics.")
	}

	c.HTML(http.StatusOK, "analytics.html", h.RenderData(c, gin.H{
		"Title":  "Analytics - " + h.Config.SiteName,
		"Report": report,
	}))
}

// ==================== 表单操作 ====================

// MarkWatched 标记已观看
func (h *Handler) MarkWatched(c *gin.Context) {
	ctx := c.Request.Context()
	movieID, ok := movieIDParam(c)
	if !ok {
		notice.Error(ctx, "Invalid movie.")
		h.redirectWithNotices(c, backTo(c, "/"))
		return
	}
	title := h.movieTitle(movieID, c.PostForm("title"))

	if err := h.Library.MarkWatched(ctx, middleware.GetUserID(c), title, movieID); err != nil {
		logging.Error().Err(err).Int("movie_id", movieID).Msg("[Library] 记录观看失败")
		notice.Error(ctx, "Failed to save activity.")
	} else {
		notice.Success(ctx, "Marked %s as watched!", title)
	}
	h.redirectWithNotices(c, backTo(c, "/"))
}

// RateMovie 评分与短评
func (h *Handler) RateMovie(c *gin.Context) {
	ctx := c.Request.Context()
	movieID, ok := movieIDParam(c)
	if !ok {
		notice.Error(ctx, "Invalid movie.")
		h.redirectWithNotices(c, backTo(c, "/"))
		return
	}
	title := h.movieTitle(movieID, c.PostForm("title"))
	rating, _ := strconv.Atoi(c.PostForm("rating"))

	err := h.Library.Rate(ctx, middleware.GetUserID(c), title, movieID, rating, c.PostForm("review"))
	switch {
	case errors.Is(err, service.ErrInvalidRating):
		notice.Error(ctx, "Rating must be between 1 and 5.")
	case err != nil:
		logging.Error().Err(err).Int("movie_id", movieID).Msg("[Library] 保存评分失败")
		notice.Error(ctx, "Failed to save your rating.")
	}
	h.redirectWithNotices(c, backTo(c, "/"))
}

// AddToWatchlist 加入片单
func (h *Handler) AddToWatchlist(c *gin.Context) {
	ctx := c.Request.Context()
	movieID, ok := movieIDParam(c)
	if !ok {
		notice.Error(ctx, "Invalid movie.")
		h.redirectWithNotices(c, backTo(c, "/"))
		return
	}
	title := h.movieTitle(movieID, c.PostForm("title"))

	added, err := h.Library.AddToWatchlist(ctx, middleware.GetUserID(c), title, movieID)
	switch {
	case err != nil:
		logging.Error().Err(err).Int("movie_id", movieID).Msg("[Library] 加入片单失败")
		notice.Error(ctx, "Failed to update your watchlist.")
	case !added:
		notice.Info(ctx, "%s is already in your watchlist.", title)
	}
	h.redirectWithNotices(c, backTo(c, "/"))
}

// RemoveFromWatchlist 移出片单
func (h *Handler) RemoveFromWatchlist(c *gin.Context) {
	ctx := c.Request.Context()
	movieID, ok := movieIDParam(c)
	if !ok {
		notice.Error(ctx, "Invalid movie.")
		h.redirectWithNotices(c, backTo(c, "/watchlist"))
		return
	}

	removed, err := h.Library.RemoveFromWatchlist(ctx, middleware.GetUserID(c), movieID)
	switch {
	case err != nil:
		logging.Error().Err(err).Int("movie_id", movieID).Msg("[Library] 移出片单失败")
		notice.Error(ctx, "Failed to update your watchlist.")
	case !removed:
		notice.Warn(ctx, "That movie is not in your watchlist.")
	}
	h.redirectWithNotices(c, backTo(c, "/watchlist"))
}
