package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/anoixa/image-gallery/internal/image"
	"github.com/docker/go-units"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// importCmd 将目录下的文件逐个走上传流程
var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Upload every image in a directory",
	Long: `Upload every regular file in a directory through the normal upload
workflow. Files that are not images or exceed the size limit are
reported and skipped. Subdirectories are not traversed.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := importOptions{}
		opts.Description, _ = cmd.Flags().GetString("description")
		opts.Tags, _ = cmd.Flags().GetString("tags")
		opts.DeleteAfter, _ = cmd.Flags().GetBool("delete-after")

		cfg, log := setup()
		defer func() { _ = log.Sync() }()

		ctx := context.Background()
		container := newContainer(ctx, cfg, log)
		defer func() { _ = container.Close(ctx) }()

		stats, err := importDirectory(ctx, container.Ingest, args[0], opts, log)
		printImportStats(os.Stdout, stats)
		if err != nil {
			log.Fatal("import failed", zap.Error(err))
		}
		if len(stats.failed) > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().String("description", "", "Description applied to every imported image")
	importCmd.Flags().String("tags", "", "Comma separated tags applied to every imported image")
	importCmd.Flags().Bool("delete-after", false, "Remove each local file after it is imported")
}

type importOptions struct {
	Description string
	Tags        string
	DeleteAfter bool
}

// importStats 导入统计
type importStats struct {
	imported []string
	skipped  []string // 校验未通过
	failed   []string
	bytes    int64
}

// uploader 上传流程
type uploader interface {
	Upload(ctx context.Context, in image.UploadInput) (*image.ImageView, error)
}

// importDirectory 按文件名顺序导入，单个文件失败不影响其他文件
func importDirectory(ctx context.Context, svc uploader, dir string, opts importOptions, log *zap.Logger) (*importStats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &importStats{}, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	stats := &importStats{}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			stats.failed = append(stats.failed, entry.Name())
			log.Warn("failed to stat file", zap.String("path", path), zap.Error(err))
			continue
		}

		_, err = svc.Upload(ctx, image.UploadInput{
			Filename:    entry.Name(),
			Size:        info.Size(),
			Description: opts.Description,
			Tags:        opts.Tags,
			Open: func() (io.ReadSeekCloser, error) {
				return os.Open(path)
			},
		})

		var verr *image.ValidationError
		switch {
		case errors.As(err, &verr):
			stats.skipped = append(stats.skipped, entry.Name())
			log.Info("skipped file", zap.String("path", path), zap.String("reason", verr.Message))
			continue
		case err != nil:
			stats.failed = append(stats.failed, entry.Name())
			log.Error("failed to import file", zap.String("path", path), zap.Error(err))
			continue
		}

		stats.imported = append(stats.imported, entry.Name())
		stats.bytes += info.Size()

		if opts.DeleteAfter {
			if err := os.Remove(path); err != nil {
				log.Warn("failed to remove imported file", zap.String("path", path), zap.Error(err))
			}
		}
	}
	return stats, nil
}

// printImportStats 输出导入统计
func printImportStats(w io.Writer, stats *importStats) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Import Report ===")
	fmt.Fprintf(w, "Imported: %d (%s)\n", len(stats.imported), units.HumanSize(float64(stats.bytes)))
	fmt.Fprintf(w, "Skipped:  %d\n", len(stats.skipped))
	for _, name := range stats.skipped {
		fmt.Fprintf(w, "  - %s\n", name)
	}
	fmt.Fprintf(w, "Failed:   %d\n", len(stats.failed))
	for _, name := range stats.failed {
		fmt.Fprintf(w, "  - %s\n", name)
	}
}
