package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/scrim/internal/cache"
	"github.com/papapumpkin/scrim/internal/config"
	"github.com/papapumpkin/scrim/internal/history"
	"github.com/papapumpkin/scrim/internal/metadata"
	"github.com/papapumpkin/scrim/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show persisted metadata and recent regenerations",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Int("limit", 10, "number of history entries to show")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	dir, err := cache.PrepareDir(cache.DefaultRoots(cfg.CacheRoot))
	if err != nil {
		return err
	}

	meta, err := metadata.Load(filepath.Join(dir, metadata.FileName))
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	entries := recentHistory(cmd.Context(), cfg, dir, limit)

	fmt.Println(ui.RenderStatus(meta, entries))
	return nil
}

// recentHistory reads the newest history entries, tolerating a missing
// database.
func recentHistory(ctx context.Context, cfg config.Config, cacheDir string, limit int) []history.Entry {
	path := cfg.HistoryDB
	if path == "" {
		path = filepath.Join(cacheDir, "history.db")
	}
	hist, err := history.Open(ctx, path)
	if err != nil {
		return nil
	}
	defer hist.Close()

	entries, err := hist.Recent(ctx, limit)
	if err != nil {
		return nil
	}
	return entries
}
