package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/user/moodreel/internal/catalog"
	"github.com/user/moodreel/internal/config"
	"github.com/user/moodreel/internal/handler"
	"github.com/user/moodreel/internal/logging"
	"github.com/user/moodreel/internal/middleware"
	"github.com/user/moodreel/internal/modelstore"
	"github.com/user/moodreel/internal/repository"
	"github.com/user/moodreel/internal/router"
	"github.com/user/moodreel/internal/service"
)

func main() {
	// 加载环境变量
	envErr := godotenv.Load()

	// 加载配置
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if envErr != nil {
		logging.Info().Msg("未找到 .env 文件，使用系统环境变量")
	}
	if err := cfg.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("配置无效")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 加载模型文件（缺失的部分降级运行）
	store, errs := modelstore.Load(ctx, modelstore.OptionsFromConfig(cfg))
	for _, err := range errs {
		logging.Warn().Err(err).Msg("[ModelStore] 模型文件不可用")
	}

	// 初始化存储
	repos, err := repository.Open(cfg)
	if err != nil {
		logging.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("存储初始化失败")
	}
	defer repos.Close()

	client := catalog.New(catalog.OptionsFromConfig(cfg))
	sessionState := service.NewSessionState(service.SessionTTL)

	// 初始化 Gin
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Prometheus())

	// 启用 gzip，默认压缩级别
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 设置 Session 中间件
	cookieStore := cookie.NewStore([]byte(cfg.AppSecret))
	cookieStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 天
		HttpOnly: true,
		Secure:   false, // 关键：非 HTTPS 环境必须为 false
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("mysession", cookieStore))

	// 加载模板（使用 multitemplate 解决继承问题）
	r.HTMLRender = router.LoadTemplates("./web/templates")

	// 静态文件
	r.Static("/static", "./web/static")

	// 中间件
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.Notices())

	// 初始化 Handler
	h := handler.NewHandler(cfg, repos, store, client, sessionState)

	// 启动定时清理任务
	cleanupSvc := service.NewCleanupService(repos, sessionState, cfg.MaintenanceInterval, cfg.BackupRetention)
	cleanupSvc.Start(ctx)

	// 注册路由
	router.RegisterRoutes(r, h)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second, // 推荐接口会串行请求目录接口
		MaxHeaderBytes: 1 << 20,
	}

	// 在 goroutine 中启动服务器，这样我们就可以监听信号
	go func() {
		logging.Info().Str("addr", "http://localhost:"+cfg.Port).Msg("服务器启动")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("服务器启动失败")
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	<-ctx.Done()
	logging.Info().Msg("正在关闭服务器...")

	// 5 秒超时上下文用于关闭过程
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("服务器强制关闭")
	}

	logging.Info().Msg("服务器已退出")
}
