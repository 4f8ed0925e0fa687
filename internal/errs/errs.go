// Package errs 业务错误：字符串错误码 + 展示消息，可包裹底层错误。
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"productivity-hub/pkg/validator"
)

// 通用错误码
const (
	CodeOK           = "200"
	CodeBadRequest   = "400"
	CodeUnauthorized = "401"
	CodeForbidden    = "403"
	CodeNotFound     = "404"
	CodeConflict     = "409"
	CodeInternal     = "500"
)

// 图片模块错误码
const (
	CodeInvalidParameter = "4004"
	CodeImageDeleted     = "4005"
	CodeInvalidRestore   = "4008"
	CodeImageNotFound    = "4041"
	CodeShareNotFound    = "4042"
	CodeProcessingFailed = "5003"
)

// Error 业务错误
type Error struct {
	Code    string
	Message string
	cause   error
}

// New 创建业务错误
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf 格式化消息
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap 包裹底层错误，cause 不会出现在 Message 中
func Wrap(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is 错误码相同即视为同一错误
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// BadRequest 400
func BadRequest(message string) *Error { return New(CodeBadRequest, message) }

// NotFound 404
func NotFound(message string) *Error { return New(CodeNotFound, message) }

// Conflict 409
func Conflict(message string) *Error { return New(CodeConflict, message) }

// Unauthorized 401
func Unauthorized(message string) *Error { return New(CodeUnauthorized, message) }

// Internal 500
func Internal(message string, cause error) *Error { return Wrap(CodeInternal, message, cause) }

// Code 取错误码，非业务错误为500
func Code(err error) string {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Message 取展示消息，非业务错误不暴露内部细节
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// HTTPStatus 错误码前三位即HTTP状态码，如 "4042" -> 404
func HTTPStatus(err error) int {
	code := Code(err)
	if len(code) > 3 {
		code = code[:3]
	}
	status, convErr := strconv.Atoi(code)
	if convErr != nil || status < 100 || status > 599 {
		return http.StatusInternalServerError
	}
	return status
}

// Validation 将字段验证错误转为400，消息取第一个字段错误
func Validation(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.Errors
	if errors.As(err, &fieldErrs) {
		return Wrap(CodeBadRequest, fieldErrs.First(), err)
	}
	return Wrap(CodeBadRequest, err.Error(), err)
}
