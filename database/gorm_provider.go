package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/anoixa/image-gallery/config"
	"github.com/anoixa/image-gallery/database/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// imageRow images 表
type imageRow struct {
	ID           uint          `gorm:"primaryKey"`
	Filename     string        `gorm:"not null;index:idx_images_filename"`
	OriginalName string        `gorm:"not null"`
	Description  string        `gorm:"not null"`
	FileSize     int64         `gorm:"not null"`
	FileType     string        `gorm:"not null"`
	Width        int           `gorm:"not null;default:0"`
	Height       int           `gorm:"not null;default:0"`
	StorageKey   string        `gorm:"uniqueIndex:idx_images_storage_key;not null"`
	StorageURL   string        `gorm:"not null"`
	UploadDate   time.Time     `gorm:"index:idx_images_upload_date;not null"`
	Tags         []imageTagRow `gorm:"foreignKey:ImageID"`

	// 小写副本供搜索使用，SQLite 的 LOWER() 只处理 ASCII
	FilenameFold    string `gorm:"not null;default:''"`
	DescriptionFold string `gorm:"not null;default:''"`
}

func (imageRow) TableName() string { return "images" }

// imageTagRow image_tags 表，Position 保留标签顺序
type imageTagRow struct {
	ID       uint   `gorm:"primaryKey"`
	ImageID  uint   `gorm:"not null;index:idx_image_tags_image_id"`
	Position int    `gorm:"not null"`
	Tag      string `gorm:"not null"`
	TagFold  string `gorm:"not null;default:''"`
}

func (imageTagRow) TableName() string { return "image_tags" }

// GormProvider 基于 GORM 的元数据存储 (SQLite / PostgreSQL)
type GormProvider struct {
	db     *gorm.DB
	dbType string
}

// NewGormLogger 将 GORM 日志桥接到 zap
func NewGormLogger(log *zap.Logger, debug bool) logger.Interface {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	return logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// NewGormProvider 根据配置创建 GORM 数据库提供者
func NewGormProvider(cfg *config.Config, log *zap.Logger) (*GormProvider, error) {
	gormLogger := NewGormLogger(log, config.IsDevelopment())

	var (
		p   *GormProvider
		err error
	)

	switch cfg.DBType {
	case "sqlite", "sqlite3":
		path := cfg.DBFilePath
		if path == "" {
			path = "./data/gallery.db"
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}

		// WAL 模式
		p, err = OpenSQLite(fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path), gormLogger)
		if err != nil {
			return nil, err
		}
		log.Info("using sqlite database", zap.String("path", path))

	case "postgres", "postgresql":
		dsn := cfg.DBURI
		if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
			dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
				cfg.DBHost, cfg.DBPort, cfg.DBUsername, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
		}

		db, err := gorm.Open(postgres.Open(dsn), gormConfig(gormLogger))
		if err != nil {
			return nil, newError("connect", KindUnavailable, fmt.Errorf("failed to connect to PostgreSQL database: %w", err))
		}
		p = &GormProvider{db: db, dbType: "postgres"}
		log.Info("connected to postgres", zap.String("host", cfg.DBHost), zap.Int("port", cfg.DBPort))

	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.DBType)
	}

	sqlDB, err := p.db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying DB instance: %w", err)
	}

	maxOpenConns := cfg.DBMaxOpenConns
	if maxOpenConns <= 0 {
		maxOpenConns = 50
	}
	maxIdleConns := cfg.DBMaxIdleConns
	if maxIdleConns <= 0 {
		maxIdleConns = 10
	}
	connMaxLifetime := cfg.DBConnMaxLifetime
	if connMaxLifetime <= 0 {
		connMaxLifetime = 3600
	}

	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpenConns)

	return p, nil
}

// OpenSQLite 按 DSN 打开 SQLite 数据库
func OpenSQLite(dsn string, gormLogger logger.Interface) (*GormProvider, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(gormLogger))
	if err != nil {
		return nil, newError("connect", KindUnavailable, fmt.Errorf("failed to open SQLite database: %w", err))
	}
	return &GormProvider{db: db, dbType: "sqlite"}, nil
}

func gormConfig(gormLogger logger.Interface) *gorm.Config {
	return &gorm.Config{
		Logger:                 gormLogger,
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	}
}

// DB 返回底层 *gorm.DB 实例
func (p *GormProvider) DB() *gorm.DB {
	return p.db
}

// Insert 在事务中写入记录及标签
func (p *GormProvider) Insert(ctx context.Context, image *models.Image) error {
	if image.UploadDate.IsZero() {
		image.UploadDate = time.Now().UTC()
	}

	row := toImageRow(image)
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(row).Error
	})
	if err != nil {
		return classifyGorm("insert", err)
	}

	image.ID = strconv.FormatUint(uint64(row.ID), 10)
	return nil
}

// FindMany 搜索并分页
func (p *GormProvider) FindMany(ctx context.Context, filter Filter) ([]*models.Image, int64, error) {
	filter = filter.Normalize()
	search := searchScope(filter.Search)

	var total int64
	if err := p.db.WithContext(ctx).Model(&imageRow{}).Scopes(search).Count(&total).Error; err != nil {
		return nil, 0, classifyGorm("count", err)
	}

	query := p.db.WithContext(ctx).
		Scopes(search).
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Order("upload_date desc").
		Order("id desc")
	if filter.Limit > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.Limit)
	}

	var rows []imageRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, classifyGorm("find", err)
	}

	images := make([]*models.Image, 0, len(rows))
	for i := range rows {
		images = append(images, rows[i].toModel())
	}
	return images, total, nil
}

// searchScope 文件名、描述或任一标签包含关键字
func searchScope(term string) func(*gorm.DB) *gorm.DB {
	term = strings.TrimSpace(term)
	return func(db *gorm.DB) *gorm.DB {
		if term == "" {
			return db
		}
		like := "%" + escapeLike(foldCase(term)) + "%"
		return db.Where(
			"images.filename_fold LIKE ? ESCAPE '\\' OR images.description_fold LIKE ? ESCAPE '\\' OR "+
				"EXISTS (SELECT 1 FROM image_tags WHERE image_tags.image_id = images.id AND image_tags.tag_fold LIKE ? ESCAPE '\\')",
			like, like, like,
		)
	}
}

// foldCase 搜索列与关键字统一按 Unicode 转小写
func foldCase(s string) string {
	return strings.ToLower(s)
}

// escapeLike 转义 LIKE 通配符
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// FindByID 按 ID 查询
func (p *GormProvider) FindByID(ctx context.Context, id string) (*models.Image, error) {
	pk, ok := parseID(id)
	if !ok {
		return nil, ErrNotFound
	}

	var row imageRow
	err := p.db.WithContext(ctx).
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		First(&row, pk).Error
	if err != nil {
		return nil, classifyGorm("find", err)
	}
	return row.toModel(), nil
}

// DeleteByID 删除记录及其标签
func (p *GormProvider) DeleteByID(ctx context.Context, id string) error {
	pk, ok := parseID(id)
	if !ok {
		return ErrNotFound
	}

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("image_id = ?", pk).Delete(&imageTagRow{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&imageRow{}, pk)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return classifyGorm("delete", err)
	}
	return nil
}

// ExistsByStorageKey 是否有记录引用该 key
func (p *GormProvider) ExistsByStorageKey(ctx context.Context, key string) (bool, error) {
	var count int64
	if err := p.db.WithContext(ctx).Model(&imageRow{}).Where("storage_key = ?", key).Count(&count).Error; err != nil {
		return false, classifyGorm("count", err)
	}
	return count > 0, nil
}

// Migrate 自动迁移数据库结构
func (p *GormProvider) Migrate(ctx context.Context) error {
	if err := p.db.WithContext(ctx).AutoMigrate(&imageRow{}, &imageTagRow{}); err != nil {
		return classifyGorm("migrate", err)
	}
	if err := p.backfillSearchColumns(ctx); err != nil {
		return classifyGorm("migrate", err)
	}
	return nil
}

// backfillSearchColumns 为缺少小写搜索列的旧数据补齐
func (p *GormProvider) backfillSearchColumns(ctx context.Context) error {
	db := p.db.WithContext(ctx)

	var images []imageRow
	err := db.Select("id", "filename", "description").
		Where("filename_fold = '' AND filename <> ''").
		FindInBatches(&images, 500, func(_ *gorm.DB, _ int) error {
			for _, r := range images {
				err := db.Model(&imageRow{}).Where("id = ?", r.ID).Updates(map[string]any{
					"filename_fold":    foldCase(r.Filename),
					"description_fold": foldCase(r.Description),
				}).Error
				if err != nil {
					return err
				}
			}
			return nil
		}).Error
	if err != nil {
		return err
	}

	var tags []imageTagRow
	return db.Select("id", "tag").
		Where("tag_fold = '' AND tag <> ''").
		FindInBatches(&tags, 500, func(_ *gorm.DB, _ int) error {
			for _, t := range tags {
				if err := db.Model(&imageTagRow{}).Where("id = ?", t.ID).Update("tag_fold", foldCase(t.Tag)).Error; err != nil {
					return err
				}
			}
			return nil
		}).Error
}

// Ping 检查数据库连接
func (p *GormProvider) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return newError("ping", KindUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return newError("ping", KindUnavailable, err)
	}
	return nil
}

// Close 关闭数据库连接
func (p *GormProvider) Close(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Name 返回数据库名称
func (p *GormProvider) Name() string {
	return p.dbType
}

func parseID(id string) (uint, bool) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// classifyGorm 将 GORM 错误映射为 ErrNotFound 或 *Error
func classifyGorm(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return newError(op, KindConstraint, err)
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone),
		errors.Is(err, context.DeadlineExceeded):
		return newError(op, KindUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return newError(op, KindUnavailable, err)
	}
	return newError(op, KindUnknown, err)
}

func toImageRow(image *models.Image) *imageRow {
	row := &imageRow{
		Filename:     image.Filename,
		OriginalName: image.OriginalName,
		Description:  image.Description,
		FileSize:     image.FileSize,
		FileType:     image.FileType,
		Width:        image.Width,
		Height:       image.Height,
		StorageKey:   image.StorageKey,
		StorageURL:   image.StorageURL,
		UploadDate:   image.UploadDate,

		FilenameFold:    foldCase(image.Filename),
		DescriptionFold: foldCase(image.Description),
	}
	for i, tag := range image.Tags {
		row.Tags = append(row.Tags, imageTagRow{Position: i, Tag: tag, TagFold: foldCase(tag)})
	}
	return row
}

func (r *imageRow) toModel() *models.Image {
	tags := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		tags = append(tags, t.Tag)
	}
	return &models.Image{
		ID:           strconv.FormatUint(uint64(r.ID), 10),
		Filename:     r.Filename,
		OriginalName: r.OriginalName,
		Description:  r.Description,
		Tags:         tags,
		FileSize:     r.FileSize,
		FileType:     r.FileType,
		Width:        r.Width,
		Height:       r.Height,
		StorageKey:   r.StorageKey,
		StorageURL:   r.StorageURL,
		UploadDate:   r.UploadDate,
	}
}
