package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/scrim/internal/cache"
	"github.com/papapumpkin/scrim/internal/config"
	"github.com/papapumpkin/scrim/internal/engine"
	"github.com/papapumpkin/scrim/internal/history"
	"github.com/papapumpkin/scrim/internal/host"
	"github.com/papapumpkin/scrim/internal/source"
	"github.com/papapumpkin/scrim/internal/telemetry"
	"github.com/papapumpkin/scrim/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the backdrop sync daemon",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().String("bridge", "", "override host bridge unix socket path")
	runCmd.Flags().String("wallpaper", "", "override wallpaper pointer file path")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyFlagOverrides(cmd, &cfg)
	printer := ui.New(cfg.Verbose)
	printer.Banner()

	// A writable cache directory is the one hard requirement; without
	// one the subsystem disables itself instead of crashing the host.
	dir, err := cache.PrepareDir(cache.DefaultRoots(cfg.CacheRoot))
	if err != nil {
		printer.Disabled(err.Error())
		return err
	}

	if cfg.BridgeSocket == "" {
		printer.Disabled("no host bridge socket configured")
		return fmt.Errorf("bridge_socket is required")
	}
	bridge, err := host.Dial(cfg.BridgeSocket)
	if err != nil {
		printer.Disabled(err.Error())
		return err
	}
	defer bridge.Close()

	if cfg.WallpaperPointer == "" {
		printer.Disabled("no wallpaper pointer configured")
		return fmt.Errorf("wallpaper_pointer is required")
	}
	provider := source.Pointer{PointerPath: cfg.WallpaperPointer}

	watcher, err := source.NewWatcher(cfg.WallpaperPointer)
	if err != nil {
		printer.Warn(fmt.Sprintf("wallpaper watcher unavailable: %v", err))
		watcher = nil
	} else if err := watcher.Start(); err != nil {
		printer.Warn(fmt.Sprintf("wallpaper watcher: %v", err))
		watcher = nil
	}
	if watcher != nil {
		defer watcher.Stop()
	}

	ctx, cancel := setupSignalContext(printer)
	defer cancel()

	hist := openHistory(ctx, cfg, dir, printer)
	defer hist.Close()

	var emitter *telemetry.Emitter
	if cfg.TelemetryPath != "" {
		emitter, err = telemetry.NewEmitter(cfg.TelemetryPath)
		if err != nil {
			printer.Warn(err.Error())
		}
	}
	defer emitter.Close()

	eng := engine.New(engine.Options{
		Config:    cfg,
		Printer:   printer,
		Bridge:    bridge,
		Provider:  provider,
		Watcher:   watcher,
		History:   hist,
		Telemetry: emitter,
		CacheDir:  dir,
	})

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// applyFlagOverrides applies CLI flag values to the loaded config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("bridge"); v != "" {
		cfg.BridgeSocket = v
	}
	if v, _ := cmd.Flags().GetString("wallpaper"); v != "" {
		cfg.WallpaperPointer = v
	}
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		cfg.Verbose = true
	}
}

// openHistory opens the regeneration history database, defaulting to a
// file alongside the artifacts. History is advisory; failure to open
// only costs the status view.
func openHistory(ctx context.Context, cfg config.Config, cacheDir string, printer *ui.Printer) *history.Store {
	path := cfg.HistoryDB
	if path == "" {
		path = filepath.Join(cacheDir, "history.db")
	}
	hist, err := history.Open(ctx, path)
	if err != nil {
		printer.Warn(err.Error())
		return nil
	}
	return hist
}

// setupSignalContext returns a context that is canceled on SIGINT or SIGTERM.
func setupSignalContext(printer *ui.Printer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		printer.Info("\nshutting down...")
		cancel()
	}()
	return ctx, cancel
}
