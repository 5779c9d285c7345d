package image

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/anoixa/image-gallery/database"
	"github.com/anoixa/image-gallery/database/models"
	"github.com/anoixa/image-gallery/storage"
	"github.com/anoixa/image-gallery/utils"
	"github.com/anoixa/image-gallery/utils/generator"
	"github.com/anoixa/image-gallery/utils/validator"
	"github.com/docker/go-units"
	"go.uber.org/zap"
)

// compensationTimeout 补偿删除的超时时间，不受请求取消影响
const compensationTimeout = 10 * time.Second

// maxKeyAttempts key 已被记录占用时的最大重新生成次数
const maxKeyAttempts = 3

// UploadInput 一次上传的输入
type UploadInput struct {
	// Filename 用户提供的原始文件名
	Filename    string
	ContentType string
	Size        int64
	Description string
	// Tags 逗号分隔的标签
	Tags string
	// Open 打开上传内容，整个流程只调用一次
	Open func() (io.ReadSeekCloser, error)
}

// keyGenerator 生成对象 key
type keyGenerator interface {
	Generate(originalName string) string
}

// IngestService 上传流程：校验 -> 写对象 -> 写记录 -> 生成链接，写记录失败时删除对象
type IngestService struct {
	blobs          storage.Provider
	db             database.Provider
	keys           keyGenerator
	maxUploadBytes int64
	listTTL        time.Duration
	log            *zap.Logger
	now            func() time.Time
}

// NewIngestService 创建上传服务
func NewIngestService(blobs storage.Provider, db database.Provider, opts Options, log *zap.Logger) *IngestService {
	return &IngestService{
		blobs:          blobs,
		db:             db,
		keys:           generator.NewKeyGenerator(),
		maxUploadBytes: opts.MaxUploadBytes,
		listTTL:        opts.ListTTL,
		log:            log.Named("ingest"),
		now:            time.Now,
	}
}

// Upload 执行一次上传，失败时返回 *IngestError
func (s *IngestService) Upload(ctx context.Context, in UploadInput) (*ImageView, error) {
	stage := StageReceived
	fail := func(err error) error {
		return &IngestError{Stage: stage, Err: err}
	}

	if in.Filename == "" || in.Open == nil {
		return nil, fail(&ValidationError{Field: "image", Message: "No image file provided"})
	}
	if in.Size <= 0 {
		return nil, fail(&ValidationError{Field: "image", Message: "Uploaded file is empty"})
	}
	if s.maxUploadBytes > 0 && in.Size > s.maxUploadBytes {
		return nil, fail(&ValidationError{
			Field:   "image",
			Message: fmt.Sprintf("File too large. Maximum size is %s", units.BytesSize(float64(s.maxUploadBytes))),
		})
	}

	file, err := in.Open()
	if err != nil {
		return nil, fail(fmt.Errorf("failed to open upload: %w", err))
	}
	defer func() { _ = file.Close() }()

	info, err := validator.Inspect(file, in.ContentType)
	if err != nil {
		return nil, fail(fmt.Errorf("failed to inspect upload: %w", err))
	}
	if !info.IsImage() {
		return nil, fail(&ValidationError{Field: "image", Message: "Only image files are allowed"})
	}
	stage = StageValidated

	key, err := s.reserveKey(ctx, in.Filename)
	if err != nil {
		s.log.Error("failed to allocate storage key",
			zap.String("filename", utils.SanitizeLogFilename(in.Filename)),
			zap.Error(err))
		return nil, fail(err)
	}
	if err := s.blobs.PutWithContext(ctx, key, file, in.Size, info.MimeType); err != nil {
		s.log.Error("failed to store blob",
			zap.String("key", key),
			zap.String("backend", s.blobs.Name()),
			zap.Error(err))
		return nil, fail(err)
	}
	stage = StageBlobStored

	record := &models.Image{
		Filename:     baseName(in.Filename),
		OriginalName: in.Filename,
		Description:  strings.TrimSpace(in.Description),
		Tags:         ParseTags(in.Tags),
		FileSize:     in.Size,
		FileType:     info.MimeType,
		Width:        info.Width,
		Height:       info.Height,
		StorageKey:   key,
		StorageURL:   s.blobs.PublicURL(key),
		UploadDate:   s.now().UTC(),
	}

	if err := s.db.Insert(ctx, record); err != nil {
		s.compensate(ctx, key, err)
		return nil, fail(err)
	}
	stage = StageRecordPersisted

	view, err := buildView(ctx, s.blobs, record, s.listTTL, s.now())
	if err != nil {
		// 记录已完整，链接缺失不影响上传结果
		s.log.Warn("failed to sign url for new upload",
			zap.String("id", record.ID),
			zap.String("key", key),
			zap.Error(err))
	}

	s.log.Info("image uploaded",
		zap.String("id", record.ID),
		zap.String("key", key),
		zap.String("filename", utils.SanitizeLogFilename(record.Filename)),
		zap.String("size", units.HumanSize(float64(record.FileSize))),
		zap.String("type", record.FileType))
	return view, nil
}

// reserveKey 生成未被任何记录引用的 key，写对象前检查以免覆盖已有图片
func (s *IngestService) reserveKey(ctx context.Context, filename string) (string, error) {
	for i := 0; i < maxKeyAttempts; i++ {
		key := s.keys.Generate(filename)
		taken, err := s.db.ExistsByStorageKey(ctx, key)
		if err != nil {
			return "", err
		}
		if !taken {
			return key, nil
		}
		s.log.Warn("storage key already referenced, regenerating", zap.String("key", key))
	}
	return "", &database.Error{
		Kind: database.KindConstraint,
		Op:   "reserve key",
		Err:  fmt.Errorf("no unused storage key after %d attempts", maxKeyAttempts),
	}
}

// compensate 写记录失败后删除已写入的对象，失败只记录日志
// 唯一约束冲突时 key 可能已属于另一条记录，此时保留对象
func (s *IngestService) compensate(ctx context.Context, key string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if database.IsKind(cause, database.KindConstraint) {
		owned, err := s.db.ExistsByStorageKey(ctx, key)
		if err != nil || owned {
			s.log.Error("storage key claimed by another record, blob kept",
				zap.String("key", key),
				zap.NamedError("cause", cause),
				zap.Error(err))
			return
		}
	}

	if err := s.blobs.DeleteWithContext(ctx, key); err != nil {
		s.log.Error("compensating delete failed, blob is orphaned",
			zap.String("key", key),
			zap.NamedError("cause", cause),
			zap.Error(err))
		return
	}
	s.log.Warn("metadata insert failed, stored blob removed",
		zap.String("key", key),
		zap.NamedError("cause", cause))
}

// baseName 取用户文件名的最后一段，兼容 Windows 分隔符
func baseName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" {
		return "image"
	}
	return name
}
