package utils

import (
	"strings"
	"unicode"
)

// SanitizeLogMessage 去除不可打印字符，防止日志注入
func SanitizeLogMessage(msg string) string {
	var sb strings.Builder
	for _, r := range msg {
		if r == '\n' || r == '\t' {
			sb.WriteRune(' ')
		} else if unicode.IsPrint(r) || unicode.IsGraphic(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// SanitizeLogFilename 截断并清理用户提供的文件名
func SanitizeLogFilename(name string) string {
	if r := []rune(name); len(r) > 80 {
		name = string(r[:80]) + "..."
	}
	return SanitizeLogMessage(name)
}
