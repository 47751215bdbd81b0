package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 应用配置
type Config struct {
	Env       string
	AppSecret string
	JWTExpiry time.Duration
	Port      string
	SiteName  string
	SiteUrl   string

	// 日志
	LogLevel  string
	LogFormat string

	// 持久化
	StorageDriver string // csv | postgres
	DataDir       string
	DatabaseURL   string

	// 模型文件
	ArtifactDir    string
	MovieListURL   string
	SimilarityURL  string
	RatingModelURL string

	// TMDB
	TMDBAPIKey       string
	TMDBBaseURL      string
	TMDBImageBase    string
	CatalogTimeout   time.Duration
	CatalogRetries   int
	CatalogBackoff   time.Duration
	CatalogRPS       float64
	CatalogCacheSize int
	CatalogCacheTTL  time.Duration

	// 推荐
	ContentWeight float64

	// HTTP
	CORSOrigins []string

	// 定时维护
	MaintenanceInterval time.Duration
	BackupRetention     time.Duration
}

const defaultSecret = "your-secret-key-change-in-production"

// Load 加载配置
func Load() *Config {
	expiryHours, _ := strconv.Atoi(getEnv("JWT_EXPIRY_HOURS", "72"))

	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "moodreel")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	appSecret := getEnv("APP_SECRET", getEnv("JWT_SECRET", defaultSecret))

	if getEnv("APP_ENV", "development") == "production" && appSecret == defaultSecret {
		fmt.Println("【严重警告】生产环境正在使用默认密钥！请立即设置 APP_SECRET 环境变量。")
	}

	return &Config{
		Env:       getEnv("APP_ENV", "development"),
		AppSecret: appSecret,
		JWTExpiry: time.Duration(expiryHours) * time.Hour,
		Port:      getEnv("PORT", "5005"),
		SiteName:  getEnv("SITE_NAME", "MoodReel"),
		SiteUrl:   getEnv("SITE_URL", "http://localhost:5005"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		StorageDriver: getEnv("STORAGE_DRIVER", "csv"),
		DataDir:       getEnv("DATA_DIR", "./data"),
		DatabaseURL:   getEnv("DATABASE_URL", dbURL),

		ArtifactDir:    getEnv("ARTIFACT_DIR", "./artifacts"),
		MovieListURL:   getEnv("MOVIE_LIST_URL", "https://drive.google.com/file/d/1aUNbwWu3gOhb2rPQJacu1yAJoNZfHfAC/view?usp=sharing"),
		SimilarityURL:  getEnv("SIMILARITY_URL", "https://drive.google.com/file/d/1vNeQkY_GfAh6xfWLydssSvh6ErRSi4Ep/view?usp=sharing"),
		RatingModelURL: getEnv("RATING_MODEL_URL", "https://drive.google.com/file/d/1ILsFbv8WWf-5ElXV7B37oj3PwJR3-gPJ/view?usp=sharing"),

		TMDBAPIKey:       getEnv("TMDB_API_KEY", ""),
		TMDBBaseURL:      getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBImageBase:    getEnv("TMDB_IMAGE_BASE", "https://image.tmdb.org/t/p"),
		CatalogTimeout:   getDuration("CATALOG_TIMEOUT", 5*time.Second),
		CatalogRetries:   getInt("CATALOG_RETRIES", 3),
		CatalogBackoff:   getDuration("CATALOG_BACKOFF", time.Second),
		CatalogRPS:       getFloat("CATALOG_RPS", 20),
		CatalogCacheSize: getInt("CATALOG_CACHE_SIZE", 2048),
		CatalogCacheTTL:  getDuration("CATALOG_CACHE_TTL", 24*time.Hour),

		ContentWeight: getFloat("CONTENT_WEIGHT", 0.5),

		CORSOrigins: getList("CORS_ORIGINS"),

		MaintenanceInterval: getDuration("MAINTENANCE_INTERVAL", time.Hour),
		BackupRetention:     getDuration("BACKUP_RETENTION", 30*24*time.Hour),
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case "csv", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if c.ContentWeight < 0 || c.ContentWeight > 1 {
		return fmt.Errorf("content weight must be within [0, 1], got %v", c.ContentWeight)
	}
	if c.CatalogRetries < 0 {
		return fmt.Errorf("catalog retries must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getList 逗号分隔的列表
func getList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

// getDuration 支持 "5s" 形式，也接受纯数字（秒）
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
