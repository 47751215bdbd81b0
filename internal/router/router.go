package router

import (
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/moodreel/internal/handler"
	"github.com/user/moodreel/internal/middleware"
	"github.com/user/moodreel/internal/utils"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	secret := h.Config.AppSecret

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":        "ok",
			"movies":        h.Store.Len(),
			"similarity":    h.Store.HasSimilarity(),
			"collaborative": h.Store.HasPredictor(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ==================== 公开页面 ====================
	public := r.Group("/")
	public.Use(middleware.OptionalAuth(secret))
	{
		public.GET("/", h.Home)
		public.GET("/discover", h.Discover)
		public.GET("/mood", h.MoodPage)
		public.POST("/mood", h.MoodSubmit)
		public.POST("/mood/reset", h.MoodReset)
		public.GET("/movie/:id", h.Movie)
		public.GET("/analytics", h.AnalyticsPage)

		// 认证
		public.GET("/signin", h.SignInPage)
		public.POST("/signin", h.SignIn)
		public.GET("/signup", h.SignUpPage)
		public.POST("/signup", h.SignUp)
		public.POST("/signout", h.SignOut)
	}

	// ==================== 用户中心（需要登录）====================
	user := r.Group("/")
	user.Use(middleware.RequireAuth(secret))
	{
		user.GET("/watchlist", h.Watchlist)
		user.GET("/history", h.History)
		user.GET("/profile", h.Profile)

		user.POST("/movie/:id/watch", h.MarkWatched)
		user.POST("/movie/:id/rate", h.RateMovie)
		user.POST("/watchlist/:id", h.AddToWatchlist)
		user.POST("/watchlist/:id/remove", h.RemoveFromWatchlist)
	}

	// ==================== JSON API ====================
	api := r.Group("/api")
	api.Use(middleware.OptionalAuth(secret))
	{
		api.GET("/recommendations/:strategy", h.RecommendationsAPI)
		api.POST("/mood", h.MoodAPI)
		api.GET("/movies/search", h.SearchAPI)
		api.GET("/movies/:id", h.MovieAPI)
		api.GET("/analytics", h.AnalyticsAPI)
	}

	r.NoRoute(middleware.OptionalAuth(secret), func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			utils.NotFound(c, "")
			return
		}
		h.NotFound(c)
	})
}

// LoadTemplates 使用 multitemplate 加载模板，解决模板继承问题
func LoadTemplates(templatesDir string) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	// 获取布局和局部模板
	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		panic(err)
	}

	partials, err := filepath.Glob(templatesDir + "/partials/*.html")
	if err != nil {
		panic(err)
	}

	// 组装模板文件列表
	assemble := func(view string) []string {
		files := make([]string, 0)
		files = append(files, layouts...)
		files = append(files, partials...)
		files = append(files, view)
		return files
	}

	// 注册所有页面模板
	pages := []string{
		"home", "discover", "mood", "movie",
		"watchlist", "history", "profile", "analytics",
		"signin", "signup", "404",
	}

	for _, page := range pages {
		viewPath := templatesDir + "/pages/" + page + ".html"
		r.AddFromFilesFuncs(page+".html", FuncMap(), assemble(viewPath)...)
	}

	return r
}

// FuncMap 模板函数
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"default": func(defaultValue, value interface{}) interface{} {
			switch v := value.(type) {
			case string:
				if v == "" {
					return defaultValue
				}
			case int:
				if v == 0 {
					return defaultValue
				}
			case nil:
				return defaultValue
			}
			return value
		},
		// 五星评分展示
		"stars": func(rating int) string {
			rating = max(0, min(5, rating))
			return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
		},
		"pct": func(part, total int) float64 {
			if total <= 0 {
				return 0
			}
			return float64(part) * 100 / float64(total)
		},
		"add": func(a, b int) int { return a + b },
		"truncate": func(s string, n int) string {
			runes := []rune(s)
			if len(runes) <= n {
				return s
			}
			return string(runes[:n]) + "…"
		},
		"join": strings.Join,
	}
}
