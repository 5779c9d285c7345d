package models

import "time"

// Image 图片元数据记录
// ID 由元数据存储在插入时生成，之后不可变
type Image struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Description  string    `json:"description"`
	Tags         []string  `json:"tags"`
	FileSize     int64     `json:"fileSize"`
	FileType     string    `json:"fileType"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	StorageKey   string    `json:"storageKey"`
	StorageURL   string    `json:"storageUrl,omitempty"`
	UploadDate   time.Time `json:"uploadDate"`
}

// HasDurableURL 记录是否持有永久公开链接
func (i *Image) HasDurableURL() bool {
	return i.StorageURL != ""
}
