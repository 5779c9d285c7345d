package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/anoixa/image-gallery/internal/image"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cleanCmd 清理没有记录引用的存储对象
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete stored images that no record refers to",
	Long: `Delete stored images that no record refers to.

Orphans are left behind when an upload stored the file but both the
record insert and the compensating delete failed. Objects younger than
--min-age are skipped so uploads still in progress are not touched.`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		minAge, _ := cmd.Flags().GetDuration("min-age")

		cfg, log := setup()
		defer func() { _ = log.Sync() }()

		ctx := context.Background()
		container := newContainer(ctx, cfg, log)
		defer func() { _ = container.Close(ctx) }()

		report, err := container.Scanner.Scan(ctx, image.ScanOptions{MinAge: minAge, DryRun: dryRun})
		if report != nil {
			printCleanReport(os.Stdout, report, dryRun)
		}
		if err != nil {
			log.Fatal("clean failed", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().Bool("dry-run", false, "Only show what would be cleaned, don't actually delete")
	cleanCmd.Flags().Duration("min-age", time.Hour, "Skip objects younger than this")
}

// printCleanReport 输出清理统计
func printCleanReport(w io.Writer, report *image.ScanReport, dryRun bool) {
	fmt.Fprintln(w)
	if dryRun {
		fmt.Fprintln(w, "=== Clean Report (dry run) ===")
	} else {
		fmt.Fprintln(w, "=== Clean Report ===")
	}
	fmt.Fprintf(w, "Objects scanned:  %d\n", report.Scanned)
	fmt.Fprintf(w, "Skipped (recent): %d\n", report.Skipped)
	fmt.Fprintf(w, "Orphans found:    %d\n", len(report.Orphans))
	for _, key := range report.Orphans {
		fmt.Fprintf(w, "  - %s\n", key)
	}
	if !dryRun {
		fmt.Fprintf(w, "Orphans deleted:  %d\n", report.Deleted)
	}
}
