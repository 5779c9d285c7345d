package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anoixa/image-gallery/api/core"
	"github.com/anoixa/image-gallery/config"
	"github.com/anoixa/image-gallery/internal/image"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start API server",
	Run: func(cmd *cobra.Command, args []string) {
		RunServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer() {
	cfg, log := setup()
	defer func() { _ = log.Sync() }()

	log.Info("starting image gallery",
		zap.String("version", config.Version),
		zap.String("commit", config.CommitHash),
		zap.String("db_type", cfg.DBType),
		zap.String("storage_type", cfg.StorageType),
		zap.Stringer("upload_max_size", cfg.UploadMaxSize))

	ctx := context.Background()
	container := newContainer(ctx, cfg, log)

	// 自动DDL
	if err := container.GetDatabaseFactory().AutoMigrate(ctx); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	if cfg.OrphanScanInterval > 0 {
		container.Scanner.Start(cfg.OrphanScanInterval, image.ScanOptions{MinAge: cfg.OrphanMinAge})
	}

	server, cleanup := core.StartServer(&core.RouterDependencies{
		Config:   cfg,
		Storage:  container.GetStorage(),
		Database: container.GetDatabaseProvider(),
		Ingest:   container.Ingest,
		Query:    container.Query,
		Delete:   container.Delete,
		Log:      log,
	})

	// 启动gin
	go func() {
		log.Info("server started", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// 处理退出signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	if cleanup != nil {
		cleanup()
	}

	if err := container.Close(shutdownCtx); err != nil {
		log.Error("error closing container", zap.Error(err))
	}

	log.Info("server exited")
}
