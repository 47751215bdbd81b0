package catalog

import (
	"context"
	"errors"
	"fmt"
	"net"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/user/moodreel/internal/logging"
	"github.com/user/moodreel/internal/metrics"
	"github.com/user/moodreel/internal/notice"
)

// ErrMalformed 响应不是预期的 JSON 结构
var ErrMalformed = errors.New("malformed catalog response")

// StatusError 非 200 响应
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

type failureKind int

const (
	kindError failureKind = iota
	kindStatus
	kindTimeout
	kindNetwork
	kindMalformed
	kindRejected
	kindCanceled
)

func classify(err error) failureKind {
	var se *StatusError
	var ne net.Error
	switch {
	case errors.As(err, &se):
		return kindStatus
	case errors.Is(err, ErrMalformed):
		return kindMalformed
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return kindRejected
	case errors.Is(err, context.Canceled):
		return kindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return kindTimeout
	case errors.As(err, &ne) && ne.Timeout():
		return kindTimeout
	case errors.As(err, &ne):
		return kindNetwork
	default:
		return kindError
	}
}

// retryable 传输错误和部分状态码需要重试
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return retryStatuses[se.Code]
	}
	if errors.Is(err, ErrMalformed) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// countsAsFailure 熔断器只统计服务端故障，4xx 与结构错误不计入
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == 429
	}
	return !errors.Is(err, ErrMalformed) && !errors.Is(err, context.Canceled)
}

// fail 记录失败：日志 + 指标 + 用户提示
func (c *Client) fail(ctx context.Context, endpoint, what string, err error) {
	kind := classify(err)

	outcome := "default"
	switch kind {
	case kindRejected:
		outcome = "rejected"
	case kindCanceled:
		// 调用方已放弃，不再提示
		metrics.CatalogRequests.WithLabelValues(endpoint, "canceled").Inc()
		logging.Debug().Err(err).Str("endpoint", endpoint).Msgf("[Catalog] 获取%s已取消", what)
		return
	}
	metrics.CatalogRequests.WithLabelValues(endpoint, outcome).Inc()
	logging.Warn().Err(err).Str("endpoint", endpoint).Msgf("[Catalog] 获取%s失败", what)

	switch kind {
	case kindStatus:
		notice.Warn(ctx, "Failed to fetch %s: %v", what, err)
	case kindTimeout:
		notice.Warn(ctx, "Request timed out fetching %s", what)
	case kindNetwork:
		notice.Warn(ctx, "Network error fetching %s. Please check internet connection.", what)
	case kindMalformed:
		notice.Warn(ctx, "Invalid %s response", what)
	case kindRejected:
		notice.Warn(ctx, "Movie catalog is temporarily unavailable, skipped %s", what)
	default:
		notice.Warn(ctx, "Error fetching %s: %v", what, err)
	}
}

func (c *Client) ok(endpoint string) {
	metrics.CatalogRequests.WithLabelValues(endpoint, "ok").Inc()
}
