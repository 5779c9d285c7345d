package generator

import (
	"path"
	"strconv"
	"strings"
	"sync"
	"time"
)

// KeyPrefix 所有图片对象的公共前缀
const KeyPrefix = "images/"

const maxNameLength = 100

// KeyGenerator 对象存储 key 生成器
// 同一进程内保证毫秒后缀严格递增
type KeyGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewKeyGenerator 创建 key 生成器
func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{now: time.Now}
}

// Generate 生成 images/<毫秒时间戳>_<清理后的文件名>
func (g *KeyGenerator) Generate(originalName string) string {
	g.mu.Lock()
	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	g.mu.Unlock()

	return KeyPrefix + strconv.FormatInt(ms, 10) + "_" + SanitizeFilename(originalName)
}

// SanitizeFilename 只保留 [A-Za-z0-9._-]，其余替换为 '_'
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))

	var sb strings.Builder
	lastUnderscore := false
	for _, r := range name {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '-' || r == '_'
		if !ok {
			r = '_'
		}
		if r == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		sb.WriteRune(r)
	}

	out := sb.String()
	if len(out) > maxNameLength {
		out = out[len(out)-maxNameLength:]
	}
	out = strings.TrimLeft(out, ".")
	if out == "" || out == "_" {
		return "image"
	}
	return out
}

// TimestampFromKey 解析 key 中的毫秒时间戳
func TimestampFromKey(key string) (time.Time, bool) {
	rest, ok := strings.CutPrefix(key, KeyPrefix)
	if !ok {
		return time.Time{}, false
	}
	raw, _, ok := strings.Cut(rest, "_")
	if !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
