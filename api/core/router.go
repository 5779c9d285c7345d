package core

import (
	"net/http"
	"time"

	"github.com/anoixa/image-gallery/api/common"
	handlerImages "github.com/anoixa/image-gallery/api/handler/images"
	"github.com/anoixa/image-gallery/api/middleware"
	"github.com/anoixa/image-gallery/config"
	"github.com/anoixa/image-gallery/database"
	"github.com/anoixa/image-gallery/internal/image"
	"github.com/anoixa/image-gallery/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// multipartOverhead 请求体上限相对单文件上限的余量，容纳表单字段与边界
const multipartOverhead = 1 << 20

// RouterDependencies 路由注册依赖
type RouterDependencies struct {
	Config   *config.Config
	Storage  storage.Provider
	Database database.Provider
	Ingest   *image.IngestService
	Query    *image.QueryService
	Delete   *image.DeleteService
	Log      *zap.Logger
}

// NewRouter 创建 gin 引擎并注册所有路由，返回的函数用于释放限流器
func NewRouter(deps *RouterDependencies) (*gin.Engine, func()) {
	cfg := deps.Config
	if !config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery(deps.Log))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Log))
	router.Use(middleware.Metrics())
	router.Use(cors.New(corsConfig(cfg.CORSAllowOrigins)))

	_ = router.SetTrustedProxies(nil)
	router.MaxMultipartMemory = cfg.MaxUploadBytes()

	apiRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitApiRPS, cfg.RateLimitApiBurst, cfg.RateLimitExpireTime)
	concurrencyLimiter := middleware.NewConcurrencyLimiter(cfg.MaxConcurrency)

	registerBasicRoutes(router, deps)
	registerFileRoutes(router, deps)
	registerAPIRoutes(router, deps, apiRateLimiter, concurrencyLimiter)

	return router, apiRateLimiter.StopCleanup
}

// corsConfig 允许任意来源时不能携带凭据
func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

// registerBasicRoutes 注册基础路由
func registerBasicRoutes(router *gin.Engine, deps *RouterDependencies) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Image Gallery API",
			"version": config.Version,
			"endpoints": gin.H{
				"health":  "/api/health",
				"upload":  "POST /api/images/upload",
				"list":    "GET /api/images",
				"get":     "GET /api/images/:id",
				"file":    "GET /api/images/:id/file",
				"share":   "GET /api/images/:id/signed-url",
				"delete":  "DELETE /api/images/:id",
				"docs":    "/swagger/index.html",
				"metrics": "/metrics",
				"version": "/version",
			},
		})
	})

	router.GET("/version", func(c *gin.Context) {
		common.RespondSuccess(c, http.StatusOK, gin.H{
			"version": config.Version,
			"commit":  config.CommitHash,
		})
	})

	router.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, middleware.GetMetrics())
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// registerFileRoutes 本地存储时直接提供文件
func registerFileRoutes(router *gin.Engine, deps *RouterDependencies) {
	local, ok := deps.Storage.(*storage.LocalStorage)
	if !ok {
		return
	}
	files := router.Group(storage.LocalFilesRoute)
	files.Use(func(c *gin.Context) {
		c.Header("Cache-Control", "public, max-age=31536000, immutable")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Next()
	})
	files.Static("/", local.BasePath())
}

// registerAPIRoutes 注册 API 路由
func registerAPIRoutes(router *gin.Engine, deps *RouterDependencies, rl *middleware.IPRateLimiter, cl *middleware.ConcurrencyLimiter) {
	healthHandler := NewHealthHandler(deps.Database, deps.Storage, deps.Log)
	imageHandler := handlerImages.NewHandler(deps.Ingest, deps.Query, deps.Delete, deps.Log)
	bodyLimit := middleware.MaxBytesReader(deps.Config.MaxUploadBytes() + multipartOverhead)

	apiGroup := router.Group("/api")
	apiGroup.Use(func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	})
	{
		apiGroup.GET("/health", healthHandler.Handle)

		limited := apiGroup.Group("")
		limited.Use(rl.Middleware(), cl.Middleware())
		{
			limited.POST("/upload", bodyLimit, imageHandler.UploadImage)

			imagesGroup := limited.Group("/images")
			{
				imagesGroup.POST("/upload", bodyLimit, imageHandler.UploadImage)
				imagesGroup.GET("", imageHandler.ListImages)
				imagesGroup.GET("/:id", imageHandler.GetImage)
				imagesGroup.GET("/:id/file", imageHandler.RedirectImageFile)
				imagesGroup.GET("/:id/signed-url", imageHandler.GetSignedURL)
				imagesGroup.DELETE("/:id", imageHandler.DeleteImage)
			}
		}
	}
}
