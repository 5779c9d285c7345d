package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind 存储错误分类
type Kind int

const (
	KindUnknown Kind = iota
	KindUnreachable
	KindAuthFailed
	KindQuotaExceeded
)

func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindAuthFailed:
		return "auth failed"
	case KindQuotaExceeded:
		return "quota exceeded"
	default:
		return "unknown"
	}
}

// ErrSigningUnsupported 后端不支持签名链接
var ErrSigningUnsupported = errors.New("backend does not issue signed urls")

// Error 对象存储操作错误
type Error struct {
	Kind Kind
	Op   string
	Key  string
	Err  error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %s: %v", e.Op, e.Key, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind 判断 err 链中是否包含指定分类的存储错误
func IsKind(err error, kind Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}

// wrap 包装底层错误，classify 为后端特定的分类函数
func wrap(op, key string, err error, classify func(error) Kind) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}

	kind := KindUnknown
	if transportFailure(err) {
		kind = KindUnreachable
	} else if classify != nil {
		kind = classify(err)
	}
	return &Error{Kind: kind, Op: op, Key: key, Err: err}
}

// transportFailure 网络层失败或超时
func transportFailure(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// classifyHTTPStatus 按 HTTP 状态码分类
func classifyHTTPStatus(status int) Kind {
	switch status {
	case 401, 403:
		return KindAuthFailed
	case 413, 507:
		return KindQuotaExceeded
	case 502, 503, 504:
		return KindUnreachable
	default:
		return KindUnknown
	}
}
