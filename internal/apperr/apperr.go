package apperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Kind 错误分类
type Kind int

const (
	KindUnexpected Kind = iota
	KindClientInput
	KindUnauthorized
	KindMethodNotAllowed
	KindNotFound
	KindStorage
)

// InternalMessage 未预期错误对外只返回这个信息
const InternalMessage = "internal_error"

// Error 统一错误包装
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status 对应的 HTTP 状态码
func (e *Error) Status() int {
	switch e.Kind {
	case KindClientInput:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage 返回给调用方的信息
//
// 存储错误透传底层信息，未预期错误只返回 internal_error
func (e *Error) PublicMessage() string {
	switch e.Kind {
	case KindUnexpected:
		return InternalMessage
	case KindStorage:
		if e.Err != nil {
			return e.Err.Error()
		}
	}
	return e.Message
}

func ClientInput(message string) *Error {
	return &Error{Kind: KindClientInput, Message: message}
}

func InvalidInput(message string, err error) *Error {
	return &Error{Kind: KindClientInput, Message: message, Err: err}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func MethodNotAllowed() *Error {
	return &Error{Kind: KindMethodNotAllowed, Message: "method not allowed"}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Storage(err error) *Error {
	return &Error{Kind: KindStorage, Message: "storage error", Err: err}
}

func Unexpected(err error) *Error {
	return &Error{Kind: KindUnexpected, Message: InternalMessage, Err: err}
}

// From 将任意错误归类，无法识别的按未预期错误处理
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Unexpected(err)
}

// Abort 写出 JSON 错误响应并终止后续处理
func Abort(c *gin.Context, err error) {
	appErr := From(err)
	if appErr.Status() >= http.StatusInternalServerError {
		zap.S().Errorw("请求处理失败",
			"path", c.Request.URL.Path,
			"request_id", c.GetString("request_id"),
			"error", appErr.Error(),
		)
	}
	c.AbortWithStatusJSON(appErr.Status(), gin.H{"error": appErr.PublicMessage()})
}
