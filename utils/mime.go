package utils

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// NormalizeMimeType 去掉参数并转小写，如 "image/PNG; q=1" -> "image/png"
func NormalizeMimeType(mimeType string) string {
	if mimeType == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
}

// IsGenericMimeType 声明的类型无法说明内容时返回 true
func IsGenericMimeType(mimeType string) bool {
	switch NormalizeMimeType(mimeType) {
	case "", "application/octet-stream", "binary/octet-stream":
		return true
	}
	return false
}

// IsImageMimeType 判断 MIME 是否属于 image/*
func IsImageMimeType(mimeType string) bool {
	return strings.HasPrefix(NormalizeMimeType(mimeType), "image/")
}

// SniffContentType 读取前 512 字节探测类型，并将流复位
func SniffContentType(stream io.ReadSeeker) (string, error) {
	buffer := make([]byte, 512)

	n, err := io.ReadFull(stream, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("failed to read stream for mime sniffing: %w", err)
	}

	contentType := http.DetectContentType(buffer[:n])

	if _, err := stream.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to seek stream back to start after sniffing: %w", err)
	}

	return NormalizeMimeType(contentType), nil
}
