package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

var (
	globalConfig *Config
	once         sync.Once
)

// 预签名 URL 的最长有效期 (SigV4)
const maxPresignTTL = 7 * 24 * time.Hour

// ByteSize 字节数，配置中可写作 "5MB" 或纯数字
type ByteSize int64

// String 返回人类可读的大小
func (b ByteSize) String() string {
	return units.BytesSize(float64(b))
}

// Config 扁平化配置结构体
type Config struct {
	// 服务器配置
	ServerHost         string        `mapstructure:"server_host"`
	ServerPort         int           `mapstructure:"server_port"`
	ServerDomain       string        `mapstructure:"server_domain"`
	ServerReadTimeout  time.Duration `mapstructure:"server_read_timeout"`
	ServerWriteTimeout time.Duration `mapstructure:"server_write_timeout"`
	ServerIdleTimeout  time.Duration `mapstructure:"server_idle_timeout"`
	CORSAllowOrigins   []string      `mapstructure:"cors_allow_origins"`

	// 元数据存储配置
	DBType            string `mapstructure:"db_type"`
	DBURI             string `mapstructure:"db_uri"`
	DBHost            string `mapstructure:"db_host"`
	DBPort            int    `mapstructure:"db_port"`
	DBUsername        string `mapstructure:"db_username"`
	DBPassword        string `mapstructure:"db_password"`
	DBName            string `mapstructure:"db_name"`
	DBSSLMode         string `mapstructure:"db_ssl_mode"`
	DBFilePath        string `mapstructure:"db_file_path"`
	DBMaxOpenConns    int    `mapstructure:"db_max_open_conns"`
	DBMaxIdleConns    int    `mapstructure:"db_max_idle_conns"`
	DBConnMaxLifetime int    `mapstructure:"db_conn_max_lifetime"`

	// 对象存储配置
	StorageType            string `mapstructure:"storage_type"`
	StorageEndpoint        string `mapstructure:"storage_endpoint"`
	StorageRegion          string `mapstructure:"storage_region"`
	StorageAccessKeyID     string `mapstructure:"storage_access_key_id"`
	StorageSecretAccessKey string `mapstructure:"storage_secret_access_key"`
	StorageBucket          string `mapstructure:"storage_bucket"`
	StorageUseSSL          bool   `mapstructure:"storage_use_ssl"`
	StoragePublicBaseURL   string `mapstructure:"storage_public_base_url"`
	StorageLocalPath       string `mapstructure:"storage_local_path"`
	StorageWebDAVURL       string `mapstructure:"storage_webdav_url"`
	StorageWebDAVUsername  string `mapstructure:"storage_webdav_username"`
	StorageWebDAVPassword  string `mapstructure:"storage_webdav_password"`
	StorageWebDAVRoot      string `mapstructure:"storage_webdav_root"`

	// 上传与链接配置
	UploadMaxSize ByteSize      `mapstructure:"upload_max_size"`
	URLListTTL    time.Duration `mapstructure:"url_list_ttl"`
	URLShareTTL   time.Duration `mapstructure:"url_share_ttl"`

	// 孤儿对象清理，间隔为 0 时 serve 不做周期扫描
	OrphanScanInterval time.Duration `mapstructure:"orphan_scan_interval"`
	OrphanMinAge       time.Duration `mapstructure:"orphan_min_age"`

	// 限流配置
	RateLimitApiRPS     float64       `mapstructure:"rate_limit_api_rps"`
	RateLimitApiBurst   int           `mapstructure:"rate_limit_api_burst"`
	RateLimitExpireTime time.Duration `mapstructure:"rate_limit_expire_time"`
	MaxConcurrency      int64         `mapstructure:"max_concurrency"`

	// 日志配置
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// InitConfig Initialize configuration
func InitConfig() {
	once.Do(func() {
		cfg, err := Load(viper.GetViper())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
			os.Exit(1)
		}
		globalConfig = cfg
	})
}

// Get 返回全局配置，需先调用 InitConfig
func Get() *Config {
	return globalConfig
}

// Load 从 viper 实例加载并校验配置
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	if path := v.GetString("config_file_path"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigFile(".env")
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			fmt.Fprintln(os.Stderr, "Info: .env file not found, using defaults and environment variables")
		}
	}

	v.AutomaticEnv()
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key)
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		stringToByteSizeHook(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	cfg.DBType = strings.ToLower(strings.TrimSpace(cfg.DBType))
	cfg.StorageType = strings.ToLower(strings.TrimSpace(cfg.StorageType))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// stringToByteSizeHook 将 "5MB" 之类的字符串解析为 ByteSize
func stringToByteSizeHook() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != reflect.TypeOf(ByteSize(0)) || f.Kind() != reflect.String {
			return data, nil
		}
		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return ByteSize(0), nil
		}
		n, err := units.RAMInBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid size %q: %w", raw, err)
		}
		return ByteSize(n), nil
	}
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	// 服务器配置默认值
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", 3001)
	v.SetDefault("server_domain", "")
	v.SetDefault("server_read_timeout", "15s")
	v.SetDefault("server_write_timeout", "60s")
	v.SetDefault("server_idle_timeout", "120s")
	v.SetDefault("cors_allow_origins", "*")

	// 元数据存储默认值
	v.SetDefault("db_type", "mongo")
	v.SetDefault("db_uri", "mongodb://localhost:27017")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_username", "postgres")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "image_gallery")
	v.SetDefault("db_ssl_mode", "disable")
	v.SetDefault("db_file_path", "./data/gallery.db")
	v.SetDefault("db_max_open_conns", 50)
	v.SetDefault("db_max_idle_conns", 10)
	v.SetDefault("db_conn_max_lifetime", 3600)

	// 对象存储默认值
	v.SetDefault("storage_type", "minio")
	v.SetDefault("storage_endpoint", "localhost:9000")
	v.SetDefault("storage_region", "us-east-1")
	v.SetDefault("storage_access_key_id", "")
	v.SetDefault("storage_secret_access_key", "")
	v.SetDefault("storage_bucket", "images")
	v.SetDefault("storage_use_ssl", false)
	v.SetDefault("storage_public_base_url", "")
	v.SetDefault("storage_local_path", "./data/uploads")
	v.SetDefault("storage_webdav_url", "")
	v.SetDefault("storage_webdav_username", "")
	v.SetDefault("storage_webdav_password", "")
	v.SetDefault("storage_webdav_root", "")

	// 上传默认值
	v.SetDefault("upload_max_size", "5MB")
	v.SetDefault("url_list_ttl", "168h")
	v.SetDefault("url_share_ttl", "1h")
	v.SetDefault("orphan_scan_interval", "0s")
	v.SetDefault("orphan_min_age", "1h")

	// 限流默认值
	v.SetDefault("rate_limit_api_rps", 30.0)
	v.SetDefault("rate_limit_api_burst", 60)
	v.SetDefault("rate_limit_expire_time", "10m")
	v.SetDefault("max_concurrency", 100)

	// 日志默认值
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// Validate 校验配置组合是否合法
func (c *Config) Validate() error {
	var errs []error

	if c.UploadMaxSize <= 0 {
		errs = append(errs, errors.New("upload_max_size must be positive"))
	}
	if c.URLListTTL <= 0 || c.URLShareTTL <= 0 {
		errs = append(errs, errors.New("url_list_ttl and url_share_ttl must be positive"))
	}

	switch c.DBType {
	case "mongo", "mongodb", "sqlite", "sqlite3", "postgres", "postgresql":
	default:
		errs = append(errs, fmt.Errorf("unsupported db_type: %s", c.DBType))
	}

	switch c.StorageType {
	case "minio", "s3":
		if c.StorageBucket == "" {
			errs = append(errs, fmt.Errorf("storage_bucket is required for %s storage", c.StorageType))
		}
		if c.StoragePublicBaseURL == "" && (c.URLListTTL > maxPresignTTL || c.URLShareTTL > maxPresignTTL) {
			errs = append(errs, fmt.Errorf("url ttl may not exceed %s for signed urls", maxPresignTTL))
		}
	case "webdav":
		if c.StorageWebDAVURL == "" {
			errs = append(errs, errors.New("storage_webdav_url is required for webdav storage"))
		}
		if c.StoragePublicBaseURL == "" {
			errs = append(errs, errors.New("storage_public_base_url is required for webdav storage"))
		}
	case "local":
		if c.StorageLocalPath == "" {
			errs = append(errs, errors.New("storage_local_path is required for local storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage_type: %s", c.StorageType))
	}

	return errors.Join(errs...)
}

// MaxUploadBytes 单文件上传大小上限
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.UploadMaxSize)
}

// Addr 返回监听地址，格式为 "host:port"
func (c *Config) Addr() string {
	host := c.ServerHost
	if host == "" {
		host = "0.0.0.0"
	}
	port := c.ServerPort
	if port == 0 {
		port = 3001
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// BaseURL 返回基础 URL，用于生成本地文件链接
func (c *Config) BaseURL() string {
	if c.ServerDomain != "" {
		return strings.TrimRight(c.ServerDomain, "/")
	}
	host := c.ServerHost
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.ServerPort)
}
