package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp 切换到空目录，避免读取仓库中的 .env
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "mongo", cfg.DBType)
	assert.Equal(t, "minio", cfg.StorageType)
	assert.Equal(t, int64(5*1024*1024), cfg.MaxUploadBytes())
	assert.Equal(t, 7*24*time.Hour, cfg.URLListTTL)
	assert.Equal(t, time.Hour, cfg.URLShareTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
	assert.Equal(t, "0.0.0.0:3001", cfg.Addr())
	assert.Equal(t, "http://localhost:3001", cfg.BaseURL())
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("UPLOAD_MAX_SIZE", "10MB")
	t.Setenv("URL_SHARE_TTL", "30m")
	t.Setenv("DB_TYPE", "SQLite")
	t.Setenv("STORAGE_TYPE", "local")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadBytes())
	assert.Equal(t, 30*time.Minute, cfg.URLShareTTL)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, "local", cfg.StorageType)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowOrigins)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := chdirTemp(t)
	content := "STORAGE_TYPE=local\nSTORAGE_LOCAL_PATH=./blobs\nSERVER_PORT=9090\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o644))

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.StorageType)
	assert.Equal(t, "./blobs", cfg.StorageLocalPath)
	assert.Equal(t, 9090, cfg.ServerPort)
}

func TestLoad_InvalidSize(t *testing.T) {
	chdirTemp(t)
	t.Setenv("UPLOAD_MAX_SIZE", "lots")

	_, err := Load(viper.New())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DBType:        "mongo",
			StorageType:   "minio",
			StorageBucket: "images",
			UploadMaxSize: 5 << 20,
			URLListTTL:    7 * 24 * time.Hour,
			URLShareTTL:   time.Hour,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "zero upload size", mutate: func(c *Config) { c.UploadMaxSize = 0 }, wantErr: "upload_max_size"},
		{name: "unknown db", mutate: func(c *Config) { c.DBType = "mysql" }, wantErr: "db_type"},
		{name: "unknown storage", mutate: func(c *Config) { c.StorageType = "ftp" }, wantErr: "storage_type"},
		{name: "missing bucket", mutate: func(c *Config) { c.StorageBucket = "" }, wantErr: "storage_bucket"},
		{name: "ttl over presign limit", mutate: func(c *Config) { c.URLListTTL = 8 * 24 * time.Hour }, wantErr: "ttl"},
		{name: "public base lifts presign limit", mutate: func(c *Config) {
			c.URLListTTL = 30 * 24 * time.Hour
			c.StoragePublicBaseURL = "https://cdn.example.com"
		}},
		{name: "webdav without public base", mutate: func(c *Config) {
			c.StorageType = "webdav"
			c.StorageWebDAVURL = "http://dav.local"
		}, wantErr: "storage_public_base_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestByteSize_String(t *testing.T) {
	assert.Equal(t, "5MiB", ByteSize(5*1024*1024).String())
}
