package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// LocalStorage 本地文件存储实现
// 文件通过 HTTP 静态路由对外提供，因此链接是永久的
type LocalStorage struct {
	absBasePath   string
	publicBaseURL string
}

// NewLocalStorage 创建本地存储提供者
// publicBaseURL 为静态文件路由的访问前缀，如 http://localhost:3001/files
func NewLocalStorage(basePath, publicBaseURL string) (*LocalStorage, error) {
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for '%s': %w", basePath, err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory '%s': %w", absPath, err)
	}

	testFile := filepath.Join(absPath, ".write_test_"+strconv.FormatInt(time.Now().UnixNano(), 10))
	f, err := os.Create(testFile)
	if err != nil {
		return nil, fmt.Errorf("local storage directory '%s' is not writable: %w", absPath, err)
	}
	_ = f.Close()
	_ = os.Remove(testFile)

	return &LocalStorage{
		absBasePath:   absPath + string(os.PathSeparator),
		publicBaseURL: publicBaseURL,
	}, nil
}

// resolve 校验 key 并返回绝对路径
func (s *LocalStorage) resolve(op, key string) (string, error) {
	if !IsValidStoragePath(key) {
		return "", &Error{Kind: KindUnknown, Op: op, Key: key, Err: fmt.Errorf("invalid storage path: %s", key)}
	}

	fullPath := filepath.Join(s.absBasePath, filepath.FromSlash(key))
	if !strings.HasPrefix(fullPath, s.absBasePath) {
		return "", &Error{Kind: KindUnknown, Op: op, Key: key, Err: fmt.Errorf("invalid file path, potential directory traversal: %s", key)}
	}
	return fullPath, nil
}

// PutWithContext 先写临时文件再重命名，读者不会看到半个文件
func (s *LocalStorage) PutWithContext(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	dstPath, err := s.resolve("put", key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return wrap("put", key, err, classifyLocal)
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return wrap("put", key, err, classifyLocal)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dstPath), ".upload-*")
	if err != nil {
		return wrap("put", key, err, classifyLocal)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return wrap("put", key, err, classifyLocal)
	}
	if err := tmp.Close(); err != nil {
		return wrap("put", key, err, classifyLocal)
	}

	if err := os.Rename(tmpName, dstPath); err != nil {
		return wrap("put", key, err, classifyLocal)
	}
	return nil
}

// SignedURL 本地存储只提供永久链接
func (s *LocalStorage) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "", &Error{Kind: KindUnknown, Op: "sign", Key: key, Err: ErrSigningUnsupported}
}

// PublicURL 返回静态路由下的访问链接
func (s *LocalStorage) PublicURL(key string) string {
	return joinURL(s.publicBaseURL, key)
}

// DeleteWithContext 从本地存储删除文件，文件不存在视为成功
func (s *LocalStorage) DeleteWithContext(ctx context.Context, key string) error {
	fullPath, err := s.resolve("delete", key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return wrap("delete", key, err, classifyLocal)
	}
	return nil
}

// Exists 检查文件是否存在
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := s.resolve("stat", key)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, wrap("stat", key, err, classifyLocal)
	}
	return true, nil
}

// List 递归列出前缀下的文件，跳过写入中的临时文件
func (s *LocalStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	err := filepath.WalkDir(s.absBasePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		rel, err := filepath.Rel(s.absBasePath, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, ObjectInfo{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, wrap("list", prefix, err, classifyLocal)
	}
	return objects, nil
}

// Health 检查存储健康状态
func (s *LocalStorage) Health(ctx context.Context) error {
	if _, err := os.ReadDir(s.absBasePath); err != nil {
		return wrap("health", "", err, classifyLocal)
	}
	return nil
}

// Name 返回存储名称
func (s *LocalStorage) Name() string {
	return "local"
}

// BasePath 返回存储的基础路径
func (s *LocalStorage) BasePath() string {
	return s.absBasePath
}

// classifyLocal 文件系统错误分类
func classifyLocal(err error) Kind {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return KindAuthFailed
	case errors.Is(err, syscall.ENOSPC):
		return KindQuotaExceeded
	default:
		return KindUnknown
	}
}

// IsValidStoragePath 校验存储路径是否合法
func IsValidStoragePath(path string) bool {
	if path == "" {
		return false
	}

	// 不允许绝对路径
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return false
	}

	// 防止目录遍历
	if strings.Contains(path, "..") {
		return false
	}

	// 只允许安全字符
	for _, r := range path {
		if (r < 'a' || r > 'z') &&
			(r < 'A' || r > 'Z') &&
			(r < '0' || r > '9') &&
			r != '-' && r != '_' && r != '.' && r != '/' {
			return false
		}
	}

	return true
}
