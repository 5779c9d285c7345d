package core

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/anoixa/image-gallery/config"
	"github.com/anoixa/image-gallery/database"
	"github.com/anoixa/image-gallery/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const healthTimeout = 5 * time.Second

var startTime = time.Now()

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string            `json:"status" example:"healthy"`
	Services  map[string]string `json:"services"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime" example:"1h2m3s"`
	Version   string            `json:"version" example:"dev"`
}

// HealthHandler 检查元数据存储与对象存储
type HealthHandler struct {
	db    database.Provider
	blobs storage.Provider
	log   *zap.Logger
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(db database.Provider, blobs storage.Provider, log *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, blobs: blobs, log: log}
}

// Handle 并发检查依赖，任一失败返回 500
// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Failure      500  {object}  HealthResponse
// @Router       /health [get]
func (h *HealthHandler) Handle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	var (
		dbStatus, storageStatus string
		dbErr, storageErr       error
	)
	var g errgroup.Group
	g.Go(func() error {
		dbStatus, dbErr = checkDatabaseHealth(ctx, h.db)
		return nil
	})
	g.Go(func() error {
		storageStatus, storageErr = checkStorageHealth(ctx, h.blobs)
		return nil
	})
	_ = g.Wait()

	resp := HealthResponse{
		Status: "healthy",
		Services: map[string]string{
			"database": dbStatus,
			"storage":  storageStatus,
			"backend":  "running",
		},
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(startTime).Round(time.Second).String(),
		Version:   config.Version,
	}

	httpStatus := http.StatusOK
	if dbStatus != statusConnected || storageStatus != statusConnected {
		resp.Status = "unhealthy"
		httpStatus = http.StatusInternalServerError
		h.log.Warn("health check failed",
			zap.NamedError("database", dbErr),
			zap.NamedError("storage", storageErr))
	}
	c.JSON(httpStatus, resp)
}

const statusConnected = "connected"

// checkDatabaseHealth 返回对外展示的状态，详细错误只写日志
func checkDatabaseHealth(ctx context.Context, provider database.Provider) (string, error) {
	if provider == nil {
		return "not initialized", errors.New("database provider not initialized")
	}
	if err := provider.Ping(ctx); err != nil {
		return "error: " + provider.Name() + " unavailable", err
	}
	return statusConnected, nil
}

func checkStorageHealth(ctx context.Context, provider storage.Provider) (string, error) {
	if provider == nil {
		return "not initialized", errors.New("storage provider not initialized")
	}
	if err := provider.Health(ctx); err != nil {
		status := "error: " + provider.Name() + " unavailable"
		var se *storage.Error
		if errors.As(err, &se) {
			status += " (" + se.Kind.String() + ")"
		}
		return status, err
	}
	return statusConnected, nil
}
