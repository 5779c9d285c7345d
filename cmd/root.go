package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/anoixa/image-gallery/config"
	"github.com/anoixa/image-gallery/internal/app"
	"github.com/anoixa/image-gallery/utils/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "image-gallery",
	Short: "An image gallery backed by object storage",
	Run: func(cmd *cobra.Command, args []string) {
		serveCmd.Run(cmd, args)
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (eg: /etc/image-gallery/config.yaml)")
	err := viper.BindPFlag("config_file_path", rootCmd.PersistentFlags().Lookup("config"))
	if err != nil {
		return
	}
}

// setup 加载配置并创建日志
func setup() (*config.Config, *zap.Logger) {
	config.InitConfig()
	cfg := config.Get()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
	zap.ReplaceGlobals(log)
	return cfg, log
}

// newContainer 创建容器，失败时退出
func newContainer(ctx context.Context, cfg *config.Config, log *zap.Logger) *app.Container {
	container, err := app.NewContainer(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize container", zap.Error(err))
	}
	return container
}
