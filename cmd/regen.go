package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/scrim/internal/cache"
	"github.com/papapumpkin/scrim/internal/config"
	"github.com/papapumpkin/scrim/internal/engine"
	"github.com/papapumpkin/scrim/internal/geometry"
	"github.com/papapumpkin/scrim/internal/host"
	"github.com/papapumpkin/scrim/internal/source"
	"github.com/papapumpkin/scrim/internal/ui"
)

var regenCmd = &cobra.Command{
	Use:   "regen <image>",
	Short: "Force one regeneration cycle for an image and exit",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegen,
}

func init() {
	regenCmd.Flags().Int("width", 1920, "target display width")
	regenCmd.Flags().Int("height", 1080, "target display height")

	rootCmd.AddCommand(regenCmd)
}

// runRegen drives a single forced pipeline against a static bridge, so
// artifacts can be produced (and inspected) without a running host.
func runRegen(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		cfg.Verbose = true
	}
	printer := ui.New(cfg.Verbose)

	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")
	if width <= 0 || height <= 0 {
		return fmt.Errorf("display dimensions must be positive")
	}

	dir, err := cache.PrepareDir(cache.DefaultRoots(cfg.CacheRoot))
	if err != nil {
		printer.Disabled(err.Error())
		return err
	}

	display := geometry.Rect{W: width, H: height}
	bridge := host.NewStaticBridge(display, []geometry.Display{{Bounds: display, Primary: true}}, host.ThemeLight)
	defer bridge.Close()

	eng := engine.New(engine.Options{
		Config:   cfg,
		Printer:  printer,
		Bridge:   bridge,
		Provider: source.Static{Path: args[0]},
		CacheDir: dir,
	})

	if err := eng.RunOnce(cmd.Context(), true); err != nil {
		return err
	}
	printer.Info(fmt.Sprintf("artifacts written under %s", dir))
	return nil
}
