package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/user/moodreel/internal/notice"
)

// Notices 为每个请求挂载提示收集器
func Notices() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, collector := notice.NewContext(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)
		c.Set("notices", collector)
		c.Next()
	}
}

// GetNotices 取出本次请求收集到的提示
func GetNotices(c *gin.Context) []notice.Notice {
	return notice.FromContext(c.Request.Context()).All()
}
