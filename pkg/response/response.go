package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type APIResponse[T any] struct {
	Status    int         `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id"`
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Count     *int        `json:"count,omitempty"`
	User      any         `json:"user,omitempty"`
	Token     string      `json:"token,omitempty"`
	Data      T           `json:"data,omitempty"`
	Meta      interface{} `json:"meta,omitempty"`
	Error     interface{} `json:"error,omitempty"`
}

func build[T any](ctx *gin.Context, status int, ok bool, message string) APIResponse[T] {
	return APIResponse[T]{
		Status:    status,
		Timestamp: time.Now(),
		RequestID: ctx.GetString("request_id"),
		Success:   ok,
		Message:   message,
	}
}

// Success writes a success envelope carrying data.
func Success[T any](ctx *gin.Context, status int, data T, message string, meta interface{}) APIResponse[T] {
	if status == 0 {
		status = http.StatusOK
	}
	resp := build[T](ctx, status, true, message)
	resp.Data = data
	resp.Meta = meta
	ctx.JSON(status, resp)
	return resp
}

// List writes a success envelope with data and its element count.
func List[T any](ctx *gin.Context, data []T, message string) APIResponse[[]T] {
	n := len(data)
	if data == nil {
		data = []T{}
	}
	resp := build[[]T](ctx, http.StatusOK, true, message)
	resp.Data = data
	resp.Count = &n
	ctx.JSON(http.StatusOK, resp)
	return resp
}

// Authenticated writes a success envelope carrying the user projection and its session token.
func Authenticated(ctx *gin.Context, status int, user any, token, message string) APIResponse[any] {
	if status == 0 {
		status = http.StatusOK
	}
	resp := build[any](ctx, status, true, message)
	resp.User = user
	resp.Token = token
	ctx.JSON(status, resp)
	return resp
}

// Error writes an error envelope and aborts the handler chain.
func Error[T any](ctx *gin.Context, status int, message string, err interface{}) APIResponse[T] {
	if status == 0 {
		status = http.StatusBadRequest
	}
	resp := build[T](ctx, status, false, message)
	resp.Error = err
	ctx.AbortWithStatusJSON(status, resp)
	return resp
}
