package image

import (
	"context"
	"time"

	"github.com/anoixa/image-gallery/database/models"
	"github.com/anoixa/image-gallery/storage"
)

// ImageView 返回给客户端的记录视图
// URL 优先取持久化的公开链接，否则为本次签发的链接
type ImageView struct {
	*models.Image
	SignedURL *string    `json:"signedUrl"`
	ExpiresAt *time.Time `json:"expiresAt"`
	URL       *string    `json:"url"`
}

// ShareLink 分享链接
type ShareLink struct {
	URL       string     `json:"signedUrl"`
	ExpiresAt *time.Time `json:"expiresAt"`
	Filename  string     `json:"filename"`
}

// Options 服务参数
type Options struct {
	MaxUploadBytes int64
	ListTTL        time.Duration
	ShareTTL       time.Duration
}

// buildView 为记录生成视图，签名失败时返回带空链接的视图和错误
func buildView(ctx context.Context, blobs storage.Provider, img *models.Image, ttl time.Duration, now time.Time) (*ImageView, error) {
	view := &ImageView{Image: img}
	if img.HasDurableURL() {
		u := img.StorageURL
		view.URL = &u
		return view, nil
	}
	if img.StorageKey == "" {
		return view, ErrNotInStorage
	}

	signed, err := blobs.SignedURL(ctx, img.StorageKey, ttl)
	if err != nil {
		return view, err
	}

	expiresAt := now.Add(ttl).UTC()
	view.SignedURL = &signed
	view.URL = &signed
	view.ExpiresAt = &expiresAt
	return view, nil
}
