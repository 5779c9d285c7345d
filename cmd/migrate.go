package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCmd 建表或建索引
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create metadata tables or indexes",
	Long: `Create the images schema in the configured metadata store.

For SQLite and PostgreSQL this runs GORM AutoMigrate.
For MongoDB this creates the storageKey (unique) and uploadDate indexes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, log := setup()
		defer func() { _ = log.Sync() }()

		timeout, _ := cmd.Flags().GetDuration("timeout")
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		container := newContainer(ctx, cfg, log)
		defer func() { _ = container.Close(context.Background()) }()

		if err := container.GetDatabaseFactory().AutoMigrate(ctx); err != nil {
			log.Fatal("migration failed", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Duration("timeout", time.Minute, "Timeout for the whole migration")
}
