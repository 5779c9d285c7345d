package utils

import (
	"context"
	"errors"
	"strings"
	"syscall"
)

// IsContextCanceled 检查错误是否由上下文取消导致
// 部分 SDK 不使用 %w 包装，额外匹配错误文本
func IsContextCanceled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	return strings.Contains(err.Error(), "context canceled")
}

// IsClientDisconnect 检查错误是否是客户端中途断开
func IsClientDisconnect(err error) bool {
	if err == nil {
		return false
	}
	return IsContextCanceled(err) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}
