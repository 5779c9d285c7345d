package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 各种图片类型的 Magic Bytes
var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	gifMagic  = []byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61}
)

func TestSniffContentType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{name: "jpeg", data: jpegMagic, want: "image/jpeg"},
		{name: "png", data: pngMagic, want: "image/png"},
		{name: "gif", data: gifMagic, want: "image/gif"},
		{name: "text", data: []byte("Hello, World!"), want: "text/plain"},
		{name: "empty", data: nil, want: "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := bytes.NewReader(tt.data)
			got, err := SniffContentType(reader)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			pos, _ := reader.Seek(0, 1)
			assert.Equal(t, int64(0), pos, "stream should be rewound")
		})
	}
}

func TestSniffContentType_LongInput(t *testing.T) {
	reader := strings.NewReader(strings.Repeat("a", 4096))
	got, err := SniffContentType(reader)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", got)
}

func TestMimeHelpers(t *testing.T) {
	assert.Equal(t, "image/png", NormalizeMimeType("image/PNG; q=1"))
	assert.Equal(t, "", NormalizeMimeType(""))

	assert.True(t, IsImageMimeType("image/svg+xml"))
	assert.True(t, IsImageMimeType("Image/Jpeg"))
	assert.False(t, IsImageMimeType("text/plain"))
	assert.False(t, IsImageMimeType("application/pdf"))

	assert.True(t, IsGenericMimeType(""))
	assert.True(t, IsGenericMimeType("application/octet-stream"))
	assert.False(t, IsGenericMimeType("image/png"))
}
