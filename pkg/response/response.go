package response

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/feedmix/pkg/logger"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func write(c *gin.Context, status int, msg string, data interface{}) {
	c.JSON(status, Response{Code: status, Message: msg, Data: data})
}

// Success 200
func Success(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, "ok", data)
}

// BadRequest 400
func BadRequest(c *gin.Context, msg string) {
	write(c, http.StatusBadRequest, msg, nil)
}

// Unauthorized 401
func Unauthorized(c *gin.Context, msg string) {
	write(c, http.StatusUnauthorized, msg, nil)
}

// NotFound 404
func NotFound(c *gin.Context, msg string) {
	write(c, http.StatusNotFound, msg, nil)
}

// TooManyRequests 429
func TooManyRequests(c *gin.Context) {
	write(c, http.StatusTooManyRequests, "too many requests", nil)
}

// BadGateway 502，上游数据源不可用
func BadGateway(c *gin.Context, err error) {
	report(c, err)
	write(c, http.StatusBadGateway, "upstream unavailable", nil)
}

// InternalError 500，记录日志并上报 sentry，不向客户端暴露内部错误
func InternalError(c *gin.Context, err error) {
	report(c, err)
	write(c, http.StatusInternalServerError, "internal error", nil)
}

func report(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logger.Error("request failed",
		zap.String("path", c.FullPath()),
		zap.String("method", c.Request.Method),
		zap.Error(err),
	)
	hub := sentry.CurrentHub().Clone()
	hub.Scope().SetTag("path", c.FullPath())
	hub.CaptureException(err)
}
