package storage

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinioConfig S3 兼容存储配置 (MinIO / Backblaze B2 / R2 等)
type MinioConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
	PublicBaseURL   string
}

// MinioStorage 基于 minio-go 的对象存储实现
type MinioStorage struct {
	client        *minio.Client
	bucketName    string
	publicBaseURL string
}

// mustGetSystemCertPool 获取系统证书池
func mustGetSystemCertPool(log *zap.Logger) *x509.CertPool {
	pool, err := x509.SystemCertPool()
	if err != nil {
		log.Warn("failed to load system cert pool", zap.Error(err))
		return x509.NewCertPool()
	}
	return pool
}

// newMinioClient 创建 minio 客户端，不发起网络请求
func newMinioClient(cfg MinioConfig, log *zap.Logger) (*minio.Client, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       time.Minute,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 10 * time.Second,
		DisableCompression:    true,
	}

	// SSL
	if cfg.UseSSL {
		transport.TLSClientConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		if f := os.Getenv("SSL_CERT_FILE"); f != "" {
			rootCAs := mustGetSystemCertPool(log)
			data, err := os.ReadFile(f)
			if err == nil {
				rootCAs.AppendCertsFromPEM(data)
			}
			transport.TLSClientConfig.RootCAs = rootCAs
		}
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}
	return client, nil
}

// NewMinioStorage 创建 minio 存储并确保 bucket 存在
func NewMinioStorage(ctx context.Context, cfg MinioConfig, log *zap.Logger) (*MinioStorage, error) {
	client, err := newMinioClient(cfg, log)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, wrap("bucket-exists", cfg.BucketName, err, classifyMinio)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, wrap("make-bucket", cfg.BucketName, err, classifyMinio)
		}
		log.Info("bucket created", zap.String("bucket", cfg.BucketName), zap.String("region", cfg.Region))
	}

	return &MinioStorage{
		client:        client,
		bucketName:    cfg.BucketName,
		publicBaseURL: cfg.PublicBaseURL,
	}, nil
}

// PutWithContext 上传对象
func (s *MinioStorage) PutWithContext(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucketName, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return wrap("put", key, err, classifyMinio)
}

// SignedURL 生成预签名 GET 链接，签名在本地完成
func (s *MinioStorage) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucketName, key, ttl, url.Values{})
	if err != nil {
		return "", wrap("sign", key, err, classifyMinio)
	}
	return u.String(), nil
}

// PublicURL 配置了公开访问前缀时返回永久链接
func (s *MinioStorage) PublicURL(key string) string {
	return joinURL(s.publicBaseURL, key)
}

// DeleteWithContext 删除对象，S3 语义下删除不存在的 key 不报错
func (s *MinioStorage) DeleteWithContext(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return nil
	}
	return wrap("delete", key, err, classifyMinio)
}

// Exists 检查对象是否存在
func (s *MinioStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, wrap("stat", key, err, classifyMinio)
}

// List 列出前缀下的对象
func (s *MinioStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, wrap("list", prefix, obj.Err, classifyMinio)
		}
		objects = append(objects, ObjectInfo{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	return objects, nil
}

// Health 检查 bucket 可访问
func (s *MinioStorage) Health(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return wrap("health", s.bucketName, err, classifyMinio)
	}
	if !exists {
		return &Error{Kind: KindUnknown, Op: "health", Key: s.bucketName, Err: fmt.Errorf("bucket %s does not exist", s.bucketName)}
	}
	return nil
}

// Name 返回存储名称
func (s *MinioStorage) Name() string {
	return "minio"
}

// classifyMinio 根据 S3 错误码分类
func classifyMinio(err error) Kind {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "InvalidToken", "AllAccessDisabled":
		return KindAuthFailed
	case "QuotaExceeded", "EntityTooLarge", "XMinioStorageFull", "XMinioAdminBucketQuotaExceeded", "StorageFull":
		return KindQuotaExceeded
	case "SlowDown", "ServiceUnavailable", "XMinioServerNotInitialized":
		return KindUnreachable
	}
	return classifyHTTPStatus(resp.StatusCode)
}
