package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/moodreel/internal/notice"
)

// Response 统一API响应结构
type Response struct {
	Code    int             `json:"code"`              // 状态码
	Message string          `json:"message"`           // 消息
	Data    interface{}     `json:"data"`              // 数据
	Success bool            `json:"success"`           // 是否成功
	Notices []notice.Notice `json:"notices,omitempty"` // 本次请求产生的提示
}

func respond(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Data:    data,
		Success: code < 400,
		Notices: notice.FromContext(c.Request.Context()).All(),
	})
}

// Success 返回成功响应
func Success(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, "success", data)
}

// SuccessWithMessage 返回成功响应并自定义消息
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusOK, message, data)
}

// Error 返回错误响应
func Error(c *gin.Context, code int, message string) {
	respond(c, code, message, nil)
}

// BadRequest 返回400错误
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized 返回401错误
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Please sign in first."
	}
	Error(c, http.StatusUnauthorized, message)
}

// NotFound 返回404错误
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Not found."
	}
	Error(c, http.StatusNotFound, message)
}

// Unavailable 返回503错误（依赖的模型或服务不可用）
func Unavailable(c *gin.Context, message string) {
	Error(c, http.StatusServiceUnavailable, message)
}

// InternalServerError 返回500错误
func InternalServerError(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error."
	}
	Error(c, http.StatusInternalServerError, message)
}
