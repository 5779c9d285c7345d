package database

import (
	"errors"
	"fmt"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// Kind 元数据存储错误分类
type Kind int

const (
	KindUnknown Kind = iota
	KindUnavailable
	KindConstraint
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindConstraint:
		return "constraint violation"
	default:
		return "unknown"
	}
}

// Error 元数据存储操作错误
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("database %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind 判断 err 链中是否包含指定分类的数据库错误
func IsKind(err error, kind Kind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}

func newError(op string, kind Kind, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}
