package database

import (
	"context"
	"fmt"

	"github.com/anoixa/image-gallery/config"
	"go.uber.org/zap"
)

// Factory 数据库工厂 - 负责创建和管理数据库提供者
type Factory struct {
	provider Provider
	log      *zap.Logger
}

// NewFactory 根据 db_type 创建数据库提供者
func NewFactory(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Factory, error) {
	log.Info("initializing database provider", zap.String("type", cfg.DBType))

	provider, err := NewProvider(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database provider: %w", err)
	}

	log.Info("database provider initialized", zap.String("provider", provider.Name()))
	return &Factory{provider: provider, log: log}, nil
}

// NewFactoryWith 包装已创建的提供者
func NewFactoryWith(provider Provider, log *zap.Logger) *Factory {
	return &Factory{provider: provider, log: log}
}

// NewProvider 按配置选择 MongoDB 或 GORM 实现
func NewProvider(ctx context.Context, cfg *config.Config, log *zap.Logger) (Provider, error) {
	switch cfg.DBType {
	case "mongo", "mongodb", "":
		return NewMongoProvider(ctx, cfg.DBURI, cfg.DBName, log)
	case "sqlite", "sqlite3", "postgres", "postgresql":
		return NewGormProvider(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.DBType)
	}
}

// GetProvider 获取数据库提供者
func (f *Factory) GetProvider() Provider {
	return f.provider
}

// Close 关闭数据库连接
func (f *Factory) Close(ctx context.Context) error {
	if f.provider != nil {
		return f.provider.Close(ctx)
	}
	return nil
}

// AutoMigrate 建表或建索引
func (f *Factory) AutoMigrate(ctx context.Context) error {
	if f.provider == nil {
		return fmt.Errorf("database provider not initialized")
	}

	f.log.Info("running database migration", zap.String("provider", f.provider.Name()))
	if err := f.provider.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	f.log.Info("database migration completed")
	return nil
}
