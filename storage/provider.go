package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo 对象列表条目
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Provider 对象存储提供者接口
// 所有后端只按 key 寻址，失败时返回 *Error
type Provider interface {
	// PutWithContext 写入对象，成功返回后即可按 key 读取
	PutWithContext(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// SignedURL 生成限时访问链接，不校验对象是否存在
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)

	// DeleteWithContext 删除对象，对象不存在时不报错
	DeleteWithContext(ctx context.Context, key string) error

	// PublicURL 返回永久公开链接，后端只支持签名链接时返回空串
	PublicURL(key string) string

	// Exists 检查对象是否存在
	Exists(ctx context.Context, key string) (bool, error)

	// List 列出指定前缀下的所有对象
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Health 检查存储健康状态
	Health(ctx context.Context) error

	// Name 返回存储名称
	Name() string
}

// joinURL 拼接公开访问前缀与 key
func joinURL(base, key string) string {
	if base == "" {
		return ""
	}
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	for len(key) > 0 && key[0] == '/' {
		key = key[1:]
	}
	return base + "/" + key
}
