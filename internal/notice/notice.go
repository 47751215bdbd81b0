// Package notice 收集单次请求内需要展示给用户的提示信息。
//
// 目录/推荐/存储等各层通过 context 上报提示，handler 在渲染时统一取出，
// 不再依赖全局会话状态。未挂载收集器的 context 上调用均为空操作。
package notice

import (
	"context"
	"fmt"
	"sync"
)

// Level 提示级别
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice 单条提示
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Collector 单次请求的提示收集器，可并发写入
type Collector struct {
	mu      sync.Mutex
	notices []Notice
}

type ctxKey struct{}

// NewContext 返回挂载了新收集器的 context
func NewContext(ctx context.Context) (context.Context, *Collector) {
	c := &Collector{}
	return context.WithValue(ctx, ctxKey{}, c), c
}

// FromContext 取出收集器（可能为 nil）
func FromContext(ctx context.Context) *Collector {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(ctxKey{}).(*Collector)
	return c
}

func (c *Collector) add(level Level, msg string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// 同一次渲染内重复的提示只保留一条
	for _, n := range c.notices {
		if n.Level == level && n.Message == msg {
			return
		}
	}
	c.notices = append(c.notices, Notice{Level: level, Message: msg})
}

// All 返回收集到的提示副本
func (c *Collector) All() []Notice {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notice, len(c.notices))
	copy(out, c.notices)
	return out
}

// Has 是否存在指定级别的提示
func (c *Collector) Has(level Level) bool {
	for _, n := range c.All() {
		if n.Level == level {
			return true
		}
	}
	return false
}

func Info(ctx context.Context, format string, args ...any) {
	FromContext(ctx).add(LevelInfo, fmt.Sprintf(format, args...))
}

func Success(ctx context.Context, format string, args ...any) {
	FromContext(ctx).add(LevelSuccess, fmt.Sprintf(format, args...))
}

func Warn(ctx context.Context, format string, args ...any) {
	FromContext(ctx).add(LevelWarning, fmt.Sprintf(format, args...))
}

func Error(ctx context.Context, format string, args ...any) {
	FromContext(ctx).add(LevelError, fmt.Sprintf(format, args...))
}
