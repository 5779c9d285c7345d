package validator

import (
	"fmt"
	"image"
	"io"

	// 注册可探测尺寸的格式
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/anoixa/image-gallery/utils"
)

// ImageInfo 上传内容的探测结果
type ImageInfo struct {
	MimeType string
	Width    int
	Height   int
}

// IsImage 声明类型或探测类型为 image/* 时返回 true
func (i ImageInfo) IsImage() bool {
	return utils.IsImageMimeType(i.MimeType)
}

// Inspect 确定 MIME 类型并尝试解析图片尺寸，结束后将流复位
// 声明类型缺失或为通用类型时使用内容探测结果
func Inspect(file io.ReadSeeker, declared string) (ImageInfo, error) {
	info := ImageInfo{MimeType: utils.NormalizeMimeType(declared)}

	if utils.IsGenericMimeType(declared) {
		sniffed, err := utils.SniffContentType(file)
		if err != nil {
			return info, err
		}
		info.MimeType = sniffed
	}

	if !info.IsImage() {
		return info, nil
	}

	// SVG 等格式无法解码尺寸，保持为 0
	if cfg, _, err := image.DecodeConfig(file); err == nil {
		info.Width, info.Height = cfg.Width, cfg.Height
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return info, fmt.Errorf("failed to rewind upload: %w", err)
	}
	return info, nil
}
