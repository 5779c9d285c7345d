// Package dbtest 提供基于内存 SQLite 的测试数据库
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/anoixa/image-gallery/database"
	"github.com/google/uuid"
	"gorm.io/gorm/logger"
)

// NewSQLite 创建已迁移的独立内存数据库，测试结束时关闭
func NewSQLite(t testing.TB) *database.GormProvider {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	p, err := database.OpenSQLite(dsn, logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := p.DB().DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// 共享缓存模式下并发写会触发表锁
	sqlDB.SetMaxOpenConns(1)

	if err := p.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}
