package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/studio-b12/gowebdav"
)

// WebDAVConfig WebDAV 配置结构
type WebDAVConfig struct {
	URL           string
	Username      string
	Password      string
	RootPath      string
	PublicBaseURL string
	Timeout       time.Duration
}

// WebDAVStorage WebDAV 存储实现
// 每次调用创建绑定 ctx 的客户端，请求随 ctx 取消而中断
type WebDAVStorage struct {
	auth          gowebdav.Authorizer
	transport     *http.Transport
	timeout       time.Duration
	baseURL       string
	rootPath      string
	publicBaseURL string
}

// NewWebDAVStorage 创建 WebDAV 存储提供者
func NewWebDAVStorage(cfg WebDAVConfig) (*WebDAVStorage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webdav URL is required")
	}

	rootPath := strings.Trim(cfg.RootPath, "/")
	if rootPath != "" {
		rootPath = "/" + rootPath
	}

	s := &WebDAVStorage{
		auth:          gowebdav.NewAutoAuth(cfg.Username, cfg.Password),
		transport:     http.DefaultTransport.(*http.Transport).Clone(),
		timeout:       cfg.Timeout,
		rootPath:      rootPath,
		baseURL:       strings.TrimRight(cfg.URL, "/"),
		publicBaseURL: cfg.PublicBaseURL,
	}

	// 验证连接
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Health(ctx); err != nil {
		return nil, fmt.Errorf("webdav connection test failed: %w", err)
	}
	return s, nil
}

// client 返回绑定 ctx 的客户端，认证状态与连接池在调用间共享
func (s *WebDAVStorage) client(ctx context.Context) *gowebdav.Client {
	c := gowebdav.NewAuthClient(s.baseURL, s.auth)
	c.SetTransport(s.transport)
	if s.timeout > 0 {
		c.SetTimeout(s.timeout)
	}
	c.SetInterceptor(func(_ string, rq *http.Request) {
		*rq = *rq.WithContext(ctx)
	})
	return c
}

// uploadBody 调用返回后拒绝继续读取，传输层可能在取消后仍持有请求体
type uploadBody struct {
	mu      sync.Mutex
	r       io.Reader
	stopped bool
}

func (b *uploadBody) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return 0, io.ErrClosedPipe
	}
	return b.r.Read(p)
}

// Seek 认证重试时回到开头
func (b *uploadBody) Seek(offset int64, whence int) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	seeker, ok := b.r.(io.Seeker)
	if !ok {
		return 0, errors.New("upload body is not seekable")
	}
	if b.stopped {
		return 0, io.ErrClosedPipe
	}
	return seeker.Seek(offset, whence)
}

func (b *uploadBody) stop() {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()
}

// fullPath 生成完整的 WebDAV 路径
func (s *WebDAVStorage) fullPath(key string) string {
	key = strings.TrimLeft(key, "/")
	if s.rootPath != "" {
		return s.rootPath + "/" + key
	}
	return "/" + key
}

// PutWithContext 流式写入 WebDAV，父目录不存在时自动创建
func (s *WebDAVStorage) PutWithContext(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return wrap("put", key, err, classifyWebDAV)
	}

	body := &uploadBody{r: r}
	defer body.stop()

	c := s.client(ctx)
	fullPath := s.fullPath(key)

	var err error
	if size > 0 {
		err = c.WriteStreamWithLength(fullPath, body, size, 0644)
	} else {
		err = c.WriteStream(fullPath, body, 0644)
	}
	return wrap("put", key, err, classifyWebDAV)
}

// SignedURL WebDAV 只提供永久链接
func (s *WebDAVStorage) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "", &Error{Kind: KindUnknown, Op: "sign", Key: key, Err: ErrSigningUnsupported}
}

// PublicURL 返回公开访问链接
func (s *WebDAVStorage) PublicURL(key string) string {
	return joinURL(s.publicBaseURL, key)
}

// DeleteWithContext 从 WebDAV 删除文件，404 视为成功
func (s *WebDAVStorage) DeleteWithContext(ctx context.Context, key string) error {
	err := s.client(ctx).Remove(s.fullPath(key))
	if err != nil && gowebdav.IsErrNotFound(err) {
		return nil
	}
	return wrap("delete", key, err, classifyWebDAV)
}

// Exists 检查文件是否存在
func (s *WebDAVStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client(ctx).Stat(s.fullPath(key))
	if err == nil {
		return true, nil
	}
	if gowebdav.IsErrNotFound(err) {
		return false, nil
	}
	return false, wrap("stat", key, err, classifyWebDAV)
}

// List 递归列出前缀所在目录下的文件
func (s *WebDAVStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	dir := prefix
	if !strings.HasSuffix(dir, "/") {
		dir = path.Dir(dir)
	}
	dir = strings.Trim(dir, "/.")

	c := s.client(ctx)
	var objects []ObjectInfo
	var walk func(rel string) error
	walk = func(rel string) error {
		entries, err := c.ReadDir(s.fullPath(rel))
		if err != nil {
			if gowebdav.IsErrNotFound(err) {
				return nil
			}
			return err
		}

		for _, entry := range entries {
			key := entry.Name()
			if rel != "" {
				key = rel + "/" + entry.Name()
			}
			if entry.IsDir() {
				if err := walk(key); err != nil {
					return err
				}
				continue
			}
			if strings.HasPrefix(key, prefix) {
				objects = append(objects, ObjectInfo{Key: key, Size: entry.Size(), LastModified: entry.ModTime()})
			}
		}
		return nil
	}

	if err := walk(dir); err != nil {
		return nil, wrap("list", prefix, err, classifyWebDAV)
	}
	return objects, nil
}

// Health 检查存储健康状态
func (s *WebDAVStorage) Health(ctx context.Context) error {
	root := s.rootPath
	if root == "" {
		root = "/"
	}
	_, err := s.client(ctx).ReadDir(root)
	return wrap("health", root, err, classifyWebDAV)
}

// Name 返回存储名称
func (s *WebDAVStorage) Name() string {
	return "webdav"
}

// classifyWebDAV 根据服务端状态码分类
func classifyWebDAV(err error) Kind {
	for _, code := range []int{401, 403, 413, 507, 502, 503, 504} {
		if gowebdav.IsErrCode(err, code) {
			return classifyHTTPStatus(code)
		}
	}
	return KindUnknown
}
