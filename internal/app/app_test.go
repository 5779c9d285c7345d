package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/anoixa/image-gallery/config"
	"github.com/anoixa/image-gallery/database/dbtest"
	"github.com/anoixa/image-gallery/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		ServerHost:       "127.0.0.1",
		ServerPort:       3001,
		DBType:           "sqlite",
		DBFilePath:       filepath.Join(dir, "gallery.db"),
		DBMaxOpenConns:   1,
		DBMaxIdleConns:   1,
		StorageType:      "local",
		StorageLocalPath: filepath.Join(dir, "uploads"),
		UploadMaxSize:    5 << 20,
		URLListTTL:       time.Hour,
		URLShareTTL:      time.Minute,
		LogLevel:         "info",
	}
}

func TestNewContainer(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	c, err := NewContainer(ctx, cfg, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "local", c.GetStorage().Name())
	assert.Equal(t, "sqlite", c.GetDatabaseProvider().Name())
	assert.Same(t, cfg, c.GetConfig())
	assert.NotNil(t, c.Ingest)
	assert.NotNil(t, c.Query)
	assert.NotNil(t, c.Delete)
	assert.NotNil(t, c.Scanner)

	require.NoError(t, c.GetDatabaseFactory().AutoMigrate(ctx))
	require.NoError(t, c.GetDatabaseProvider().Ping(ctx))

	// 本地存储使用服务地址下的文件路由
	assert.Equal(t, "http://127.0.0.1:3001/files/images/a.png", c.GetStorage().PublicURL("images/a.png"))

	require.NoError(t, c.Close(ctx))
}

func TestNewContainer_UnsupportedStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageType = "ftp"

	_, err := NewContainer(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported storage type")
}

func TestNewContainerWith(t *testing.T) {
	cfg := testConfig(t)
	blobs, err := storage.NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)
	db := dbtest.NewSQLite(t)

	c := NewContainerWith(cfg, zap.NewNop(), blobs, db)
	assert.Same(t, db, c.GetDatabaseProvider())

	// 未启动的扫描器也可以停止
	c.Scanner.Stop()
}
