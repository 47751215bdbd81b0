// Package catalog TMDB 目录客户端
//
// 所有对外方法都不返回错误：失败时写入请求级提示并返回安全的默认值。
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/user/moodreel/internal/config"
	"github.com/user/moodreel/internal/logging"
	"github.com/user/moodreel/internal/metrics"
	"github.com/user/moodreel/internal/utils"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// 占位海报
const (
	PlaceholderNoPoster     = "https://via.placeholder.com/200x300?text=No+Poster"
	PlaceholderError        = "https://via.placeholder.com/200x300?text=Error"
	PlaceholderNetworkError = "https://via.placeholder.com/200x300?text=Network+Error"
	PlaceholderTimeout      = "https://via.placeholder.com/200x300?text=Timeout"
)

// 需要重试的状态码
var retryStatuses = map[int]bool{
	http.StatusNoContent:           true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Options 客户端参数
type Options struct {
	APIKey    string
	BaseURL   string
	ImageBase string
	Timeout   time.Duration // 单次请求超时
	Retries   int
	Backoff   time.Duration // 第 n 次重试前等待 Backoff * 2^(n-1)
	RPS       float64       // <= 0 表示不限速
	CacheSize int
	CacheTTL  time.Duration
	// HTTPClient 为空时使用默认客户端
	HTTPClient *http.Client
}

// OptionsFromConfig 从应用配置构造
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		APIKey:    cfg.TMDBAPIKey,
		BaseURL:   cfg.TMDBBaseURL,
		ImageBase: cfg.TMDBImageBase,
		Timeout:   cfg.CatalogTimeout,
		Retries:   cfg.CatalogRetries,
		Backoff:   cfg.CatalogBackoff,
		RPS:       cfg.CatalogRPS,
		CacheSize: cfg.CatalogCacheSize,
		CacheTTL:  cfg.CatalogCacheTTL,
	}
}

// Client TMDB 客户端
type Client struct {
	opts    Options
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
	group   singleflight.Group
	cache   *utils.TTLCache[[]byte]
	sleep   func(ctx context.Context, d time.Duration) error
}

// New 创建客户端
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.themoviedb.org/3"
	}
	if opts.ImageBase == "" {
		opts.ImageBase = "https://image.tmdb.org/t/p"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	opts.ImageBase = strings.TrimRight(opts.ImageBase, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	limit := rate.Inf
	burst := 1
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
		burst = int(opts.RPS)
		if burst < 1 {
			burst = 1
		}
	}

	return &Client{
		opts:    opts,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		cb:      newBreaker("tmdb-api"),
		cache:   utils.NewTTLCache[[]byte](opts.CacheSize, opts.CacheTTL),
		sleep:   sleepContext,
	}
}

// get 发起 GET 请求并返回原始响应体
// 顺序：缓存 -> singleflight 合并 -> 熔断器 -> 限速 + 重试
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, cacheable bool) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	key := path + "?" + params.Encode()

	if cacheable {
		if body, ok := c.cache.Get(key); ok {
			metrics.CatalogCacheHits.Inc()
			return body, nil
		}
	}

	start := time.Now()
	ch := c.group.DoChan(key, func() (interface{}, error) {
		// 合并后的请求不随某一个调用方取消，单次超时仍由 fetchOnce 控制
		shared := context.WithoutCancel(ctx)
		body, err := c.cb.Execute(func() ([]byte, error) {
			return c.fetchWithRetry(shared, endpoint, path, params)
		})
		if err == nil && cacheable {
			c.cache.Set(key, body)
		}
		return body, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		metrics.CatalogRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (c *Client) fetchWithRetry(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("api_key", c.opts.APIKey)
	target := c.opts.BaseURL + path + "?" + q.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.opts.Retries; attempt++ {
		if attempt > 0 {
			wait := c.opts.Backoff * time.Duration(1<<(attempt-1))
			logging.Debug().Str("endpoint", endpoint).Int("attempt", attempt).Dur("wait", wait).Err(lastErr).Msg("[Catalog] 重试请求")
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.fetchOnce(ctx, target)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return nil, ErrMalformed
	}
	return body, nil
}

// posterURL 拼接海报地址，路径为空时返回占位图
func (c *Client) posterURL(path string) string {
	if path == "" {
		return PlaceholderNoPoster
	}
	return c.opts.ImageBase + "/w500/" + strings.TrimPrefix(path, "/")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
