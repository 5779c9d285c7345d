package database

import (
	"context"

	"github.com/anoixa/image-gallery/database/models"
)

// MaxPageSize 单页最大记录数
const MaxPageSize = 100

// Filter 列表查询条件
type Filter struct {
	// Search 对文件名、描述、标签做不区分大小写的子串匹配
	Search string
	// Page 从 1 开始，Limit <= 0 时不分页
	Page  int
	Limit int
}

// Normalize 校正分页参数
func (f Filter) Normalize() Filter {
	if f.Limit <= 0 {
		f.Limit, f.Page = 0, 0
		return f
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Page < 1 {
		f.Page = 1
	}
	return f
}

// Offset 分页偏移量
func (f Filter) Offset() int {
	if f.Limit <= 0 || f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// Provider 元数据存储接口
// 与对象存储之间不存在事务
type Provider interface {
	// Insert 写入记录，生成 ID，UploadDate 为零值时设为当前时间
	Insert(ctx context.Context, image *models.Image) error

	// FindMany 按 uploadDate 倒序查询，返回当前页及匹配总数
	FindMany(ctx context.Context, filter Filter) ([]*models.Image, int64, error)

	// FindByID 按 ID 查询，不存在返回 ErrNotFound
	FindByID(ctx context.Context, id string) (*models.Image, error)

	// DeleteByID 按 ID 删除，不存在返回 ErrNotFound
	DeleteByID(ctx context.Context, id string) error

	// ExistsByStorageKey 是否有记录引用该对象 key
	ExistsByStorageKey(ctx context.Context, key string) (bool, error)

	// Migrate 建表或建索引
	Migrate(ctx context.Context) error

	// Ping 检查连接
	Ping(ctx context.Context) error

	// Close 关闭连接
	Close(ctx context.Context) error

	// Name 返回数据库名称
	Name() string
}
