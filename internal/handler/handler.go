package handler

import (
	"encoding/gob"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/user/moodreel/internal/catalog"
	"github.com/user/moodreel/internal/config"
	"github.com/user/moodreel/internal/middleware"
	"github.com/user/moodreel/internal/model"
	"github.com/user/moodreel/internal/modelstore"
	"github.com/user/moodreel/internal/mood"
	"github.com/user/moodreel/internal/notice"
	"github.com/user/moodreel/internal/recommend"
	"github.com/user/moodreel/internal/repository"
	"github.com/user/moodreel/internal/service"
)

func init() {
	// Session 中保存的类型
	gob.Register(model.SessionUser{})
	gob.Register(notice.Notice{})
}

// DefaultUserID 未登录时协同过滤使用的用户
const DefaultUserID = 1

// Handler HTTP 处理器
type Handler struct {
	Config        *config.Config
	Store         *modelstore.Store
	Catalog       *catalog.Client
	Recommender   *recommend.Service
	Mood          *mood.Engine
	Accounts      *service.AccountService
	Library       *service.LibraryService
	Profiles      *service.ProfileService
	Analytics     *service.AnalyticsService
	Notifications *service.NotificationService
	Details       *service.MovieDetailService
	Sessions      *service.SessionState
}

// NewHandler 创建处理器
func NewHandler(cfg *config.Config, repos *repository.Repositories, store *modelstore.Store, client *catalog.Client, sessions *service.SessionState, moodOpts ...mood.Option) *Handler {
	recommender := recommend.New(store, client, repos.Reviews)

	return &Handler{
		Config:        cfg,
		Store:         store,
		Catalog:       client,
		Recommender:   recommender,
		Mood:          mood.NewEngine(client, moodOpts...),
		Accounts:      service.NewAccountService(repos.Users),
		Library:       service.NewLibraryService(repos),
		Profiles:      service.NewProfileService(repos.Users, repos.Reviews),
		Analytics:     service.NewAnalyticsService(repos.Reviews, store),
		Notifications: service.NewNotificationService(repos.Reviews, repos.Notifications, store),
		Details:       service.NewMovieDetailService(client, repos.Reviews, store, recommender),
		Sessions:      sessions,
	}
}

// RenderData 统一封装公共渲染数据
func (h *Handler) RenderData(c *gin.Context, data gin.H) gin.H {
	res := gin.H{
		"SiteName":   h.Config.SiteName,
		"SiteUrl":    h.Config.SiteUrl,
		"Path":       c.Request.URL.Path,
		"RequestURI": c.Request.URL.RequestURI(),
	}

	session := sessions.Default(c)
	if userinfo := session.Get("userinfo"); userinfo != nil && middleware.GetUserID(c) > 0 {
		if su, ok := userinfo.(model.SessionUser); ok {
			res["UserInfo"] = su
			res["SignedIn"] = true
		}
	}

	// 上一次跳转带过来的提示 + 本次请求的提示
	var notices []notice.Notice
	if flashes := session.Flashes(); len(flashes) > 0 {
		for _, f := range flashes {
			if n, ok := f.(notice.Notice); ok {
				notices = append(notices, n)
			}
		}
		session.Save()
	}
	notices = append(notices, middleware.GetNotices(c)...)
	res["Notices"] = notices

	res["ActiveMenu"] = h.getActiveMenu(c.Request.URL.Path)

	for k, v := range data {
		res[k] = v
	}
	return res
}

// getActiveMenu 根据路径判断当前高亮菜单
func (h *Handler) getActiveMenu(path string) string {
	switch {
	case path == "/":
		return "home"
	case strings.HasPrefix(path, "/discover"):
		return "discover"
	case strings.HasPrefix(path, "/mood"):
		return "mood"
	case strings.HasPrefix(path, "/watchlist"):
		return "watchlist"
	case strings.HasPrefix(path, "/history"):
		return "history"
	case strings.HasPrefix(path, "/analytics"):
		return "analytics"
	case strings.HasPrefix(path, "/profile"):
		return "profile"
	case strings.HasPrefix(path, "/signin"), strings.HasPrefix(path, "/signup"):
		return "signin"
	default:
		return ""
	}
}

// redirectWithNotices 把本次请求的提示存入 flash 后跳转（PRG）
func (h *Handler) redirectWithNotices(c *gin.Context, target string) {
	session := sessions.Default(c)
	for _, n := range middleware.GetNotices(c) {
		session.AddFlash(n)
	}
	session.Save()
	c.Redirect(http.StatusSeeOther, target)
}

// backTo 表单提交后的返回地址，只允许站内路径
func backTo(c *gin.Context, fallback string) string {
	target := c.PostForm("redirect")
	if target == "" {
		target = c.Query("redirect")
	}
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	return target
}

// sessionID 取会话 ID，没有时生成一个
func (h *Handler) sessionID(c *gin.Context) string {
	session := sessions.Default(c)
	if sid, ok := session.Get("sid").(string); ok && sid != "" {
		return sid
	}
	sid := uuid.New().String()
	session.Set("sid", sid)
	session.Save()
	return sid
}

// movieIDParam 解析路径中的电影 ID
func movieIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// NotFound 404 页面
func (h *Handler) NotFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "404.html", h.RenderData(c, gin.H{
		"Title": "Not Found - " + h.Config.SiteName,
	}))
}
