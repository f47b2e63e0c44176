package domain

import "fmt"

// 错误分类（对应 HTTP 层的 400 / 409 / 422）
// - ValidationError: 输入本身不合法，写入前拒绝，调用方修正后可重试
// - PreconditionError: 状态/角色/阶段不满足，写入前拒绝，对本次请求是终态
// - InvariantError: 会破坏层级不变量的写入，必须在落库前拦截

// ValidationError 输入校验失败
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Msg)
	}
	return "validation failed: " + e.Msg
}

// PreconditionError 前置条件不满足（错误的阶段/状态/角色）
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Msg
}

// InvariantError 层级不变量被破坏（环、重复主库房、库房挂子节点等）
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "invariant violated: " + e.Msg
}

// NotFoundError 实体不存在
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

func Preconditionf(format string, args ...any) error {
	return &PreconditionError{Msg: fmt.Sprintf(format, args...)}
}

func Invariantf(format string, args ...any) error {
	return &InvariantError{Msg: fmt.Sprintf(format, args...)}
}
