package images

import (
	"github.com/anoixa/image-gallery/internal/image"
	"go.uber.org/zap"
)

// Handler 图片处理器
type Handler struct {
	ingest *image.IngestService
	query  *image.QueryService
	delete *image.DeleteService
	log    *zap.Logger
}

// NewHandler 图片处理器
func NewHandler(ingest *image.IngestService, query *image.QueryService, del *image.DeleteService, log *zap.Logger) *Handler {
	return &Handler{
		ingest: ingest,
		query:  query,
		delete: del,
		log:    log.Named("images"),
	}
}

// UploadResponse 上传成功响应
type UploadResponse struct {
	Success bool             `json:"success" example:"true"`
	Image   *image.ImageView `json:"image"`
}

// ListResponse 列表响应
type ListResponse struct {
	Success bool               `json:"success" example:"true"`
	Count   int                `json:"count" example:"2"`
	Total   int64              `json:"total" example:"10"`
	Images  []*image.ImageView `json:"images"`
}

// ImageResponse 单条记录响应
type ImageResponse struct {
	Success bool             `json:"success" example:"true"`
	Image   *image.ImageView `json:"image"`
}

// SignedURLResponse 分享链接响应
type SignedURLResponse struct {
	Success bool `json:"success" example:"true"`
	*image.ShareLink
}
