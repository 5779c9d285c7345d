package core

import (
	"net/http"
)

// StartServer 创建 http.Server，返回的函数在关闭服务后调用
func StartServer(deps *RouterDependencies) (*http.Server, func()) {
	cfg := deps.Config
	router, cleanup := NewRouter(deps)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return srv, cleanup
}
