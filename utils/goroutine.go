package utils

import "go.uber.org/zap"

// SafeGo 拦截 panic 的 goroutine
func SafeGo(log *zap.Logger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("goroutine panic recovered", zap.String("goroutine", name), zap.Any("panic", r), zap.Stack("stack"))
			}
		}()
		fn()
	}()
}
