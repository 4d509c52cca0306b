package bizerr

import "errors"

// 业务错误码，对前端保持稳定
const (
	CodeNotFound     = "NOT_FOUND"
	CodeDuplicate    = "DUPLICATE"
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeSystemError  = "SYSTEM_ERROR"
)

// Error 带稳定错误码的业务错误
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func NotFound(message string) *Error {
	if message == "" {
		message = "记录不存在"
	}
	return New(CodeNotFound, message)
}

func Duplicate(message string) *Error {
	if message == "" {
		message = "记录已存在"
	}
	return New(CodeDuplicate, message)
}

func BadRequest(message string) *Error {
	if message == "" {
		message = "请求参数错误"
	}
	return New(CodeBadRequest, message)
}

func Unauthorized(message string) *Error {
	if message == "" {
		message = "未登录或登录已过期"
	}
	return New(CodeUnauthorized, message)
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "没有操作权限"
	}
	return New(CodeForbidden, message)
}

func System(message string) *Error {
	if message == "" {
		message = "系统繁忙，请稍后重试"
	}
	return New(CodeSystemError, message)
}

// CodeOf 提取错误码，非业务错误一律视为系统错误
func CodeOf(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return CodeSystemError
}

// Is 判断错误是否携带指定错误码
func Is(err error, code string) bool {
	return CodeOf(err) == code
}
