package storage

import (
	"context"
	"fmt"

	"github.com/anoixa/image-gallery/config"
	"go.uber.org/zap"
)

// LocalFilesRoute 本地存储的静态文件路由
const LocalFilesRoute = "/files"

// NewProvider 根据配置创建对象存储提供者
func NewProvider(ctx context.Context, cfg *config.Config, log *zap.Logger) (Provider, error) {
	switch cfg.StorageType {
	case "minio":
		return NewMinioStorage(ctx, minioConfigFrom(cfg), log.Named("minio"))
	case "s3":
		return NewS3Storage(ctx, minioConfigFrom(cfg))
	case "webdav":
		return NewWebDAVStorage(WebDAVConfig{
			URL:           cfg.StorageWebDAVURL,
			Username:      cfg.StorageWebDAVUsername,
			Password:      cfg.StorageWebDAVPassword,
			RootPath:      cfg.StorageWebDAVRoot,
			PublicBaseURL: cfg.StoragePublicBaseURL,
		})
	case "local":
		publicBase := cfg.StoragePublicBaseURL
		if publicBase == "" {
			publicBase = cfg.BaseURL() + LocalFilesRoute
		}
		return NewLocalStorage(cfg.StorageLocalPath, publicBase)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.StorageType)
	}
}

func minioConfigFrom(cfg *config.Config) MinioConfig {
	return MinioConfig{
		Endpoint:        cfg.StorageEndpoint,
		Region:          cfg.StorageRegion,
		AccessKeyID:     cfg.StorageAccessKeyID,
		SecretAccessKey: cfg.StorageSecretAccessKey,
		BucketName:      cfg.StorageBucket,
		UseSSL:          cfg.StorageUseSSL,
		PublicBaseURL:   cfg.StoragePublicBaseURL,
	}
}
