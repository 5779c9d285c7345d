package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/anoixa/image-gallery/config"
	"github.com/anoixa/image-gallery/database"
	"github.com/anoixa/image-gallery/internal/image"
	"github.com/anoixa/image-gallery/storage"
	"go.uber.org/zap"
)

// Container 依赖注入容器 - 管理所有服务的生命周期
type Container struct {
	config          *config.Config
	log             *zap.Logger
	storage         storage.Provider
	databaseFactory *database.Factory

	Ingest  *image.IngestService
	Query   *image.QueryService
	Delete  *image.DeleteService
	Scanner *image.OrphanScanner
}

// NewContainer 连接对象存储与元数据存储并创建服务
func NewContainer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	log.Debug("initializing container")

	blobs, err := storage.NewProvider(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage provider: %w", err)
	}
	log.Info("storage provider initialized", zap.String("provider", blobs.Name()))

	factory, err := database.NewFactory(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	return newContainer(cfg, log, blobs, factory), nil
}

// NewContainerWith 使用已创建的提供者组装容器
func NewContainerWith(cfg *config.Config, log *zap.Logger, blobs storage.Provider, db database.Provider) *Container {
	return newContainer(cfg, log, blobs, database.NewFactoryWith(db, log))
}

func newContainer(cfg *config.Config, log *zap.Logger, blobs storage.Provider, factory *database.Factory) *Container {
	db := factory.GetProvider()
	opts := image.Options{
		MaxUploadBytes: cfg.MaxUploadBytes(),
		ListTTL:        cfg.URLListTTL,
		ShareTTL:       cfg.URLShareTTL,
	}

	return &Container{
		config:          cfg,
		log:             log,
		storage:         blobs,
		databaseFactory: factory,
		Ingest:          image.NewIngestService(blobs, db, opts, log),
		Query:           image.NewQueryService(blobs, db, opts, log),
		Delete:          image.NewDeleteService(blobs, db, log),
		Scanner:         image.NewOrphanScanner(blobs, db, log),
	}
}

// GetConfig 获取配置
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetStorage 获取对象存储提供者
func (c *Container) GetStorage() storage.Provider {
	return c.storage
}

// GetDatabaseFactory 获取数据库工厂
func (c *Container) GetDatabaseFactory() *database.Factory {
	return c.databaseFactory
}

// GetDatabaseProvider 获取数据库提供者
func (c *Container) GetDatabaseProvider() database.Provider {
	if c.databaseFactory == nil {
		return nil
	}
	return c.databaseFactory.GetProvider()
}

// Close 停止后台任务并关闭数据库连接
func (c *Container) Close(ctx context.Context) error {
	c.log.Debug("closing container")

	var errs []error
	if c.Scanner != nil {
		c.Scanner.Stop()
	}
	if c.databaseFactory != nil {
		if err := c.databaseFactory.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
