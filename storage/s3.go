package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Storage 基于 AWS SDK v2 的对象存储实现
type S3Storage struct {
	client        *s3.Client
	presigner     *s3.PresignClient
	bucketName    string
	publicBaseURL string
}

// NewS3Storage 创建 S3 存储，Endpoint 为空时使用 AWS 默认端点
func NewS3Storage(ctx context.Context, cfg MinioConfig) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(cfg.Endpoint, cfg.UseSSL))
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		client:        client,
		presigner:     s3.NewPresignClient(client),
		bucketName:    cfg.BucketName,
		publicBaseURL: cfg.PublicBaseURL,
	}, nil
}

// endpointURL 补全协议头
func endpointURL(endpoint string, useSSL bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// PutWithContext 上传对象
func (s *S3Storage) PutWithContext(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	_, err := s.client.PutObject(ctx, input)
	return wrap("put", key, err, classifyS3)
}

// SignedURL 生成预签名 GET 链接
func (s *S3Storage) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", wrap("sign", key, err, classifyS3)
	}
	return req.URL, nil
}

// PublicURL 配置了公开访问前缀时返回永久链接
func (s *S3Storage) PublicURL(key string) string {
	return joinURL(s.publicBaseURL, key)
}

// DeleteWithContext 删除对象
func (s *S3Storage) DeleteWithContext(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil && isS3NotFound(err) {
		return nil
	}
	return wrap("delete", key, err, classifyS3)
}

// Exists 检查对象是否存在
func (s *S3Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isS3NotFound(err) {
		return false, nil
	}
	return false, wrap("stat", key, err, classifyS3)
}

// List 分页列出前缀下的对象
func (s *S3Storage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucketName),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrap("list", prefix, err, classifyS3)
		}
		for _, obj := range page.Contents {
			objects = append(objects, ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return objects, nil
}

// Health 检查 bucket 可访问
func (s *S3Storage) Health(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucketName)})
	return wrap("health", s.bucketName, err, classifyS3)
}

// Name 返回存储名称
func (s *S3Storage) Name() string {
	return "s3"
}

// isS3NotFound HeadObject 返回 NotFound，其余接口返回 NoSuchKey
func isS3NotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound")
}

// classifyS3 根据 API 错误码与 HTTP 状态分类
func classifyS3(err error) Kind {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "InvalidToken", "AllAccessDisabled":
			return KindAuthFailed
		case "QuotaExceeded", "EntityTooLarge", "StorageFull":
			return KindQuotaExceeded
		case "SlowDown", "ServiceUnavailable", "RequestTimeout":
			return KindUnreachable
		}
	}

	// awshttp.ResponseError 与 smithyhttp.ResponseError 都实现该方法
	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) {
		return classifyHTTPStatus(respErr.HTTPStatusCode())
	}
	return KindUnknown
}
