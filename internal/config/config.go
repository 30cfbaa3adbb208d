package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/papapumpkin/scrim/internal/brightness"
)

// OverlayConfig holds the scrim overlay tuning: base colors per
// appearance and the brightness-to-alpha mapping.
type OverlayConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	LightRGB      []int   `mapstructure:"light_rgb"`
	DarkRGB       []int   `mapstructure:"dark_rgb"`
	MinAlpha      float64 `mapstructure:"min_alpha"`
	MaxAlpha      float64 `mapstructure:"max_alpha"`
	LowThreshold  int     `mapstructure:"low_threshold"`
	HighThreshold int     `mapstructure:"high_threshold"`
}

// Config holds all runtime configuration for a scrim daemon.
// Values are populated from .scrim.yaml, SCRIM_* env vars, and CLI flags.
type Config struct {
	BridgeSocket     string        `mapstructure:"bridge_socket"`
	WallpaperPointer string        `mapstructure:"wallpaper_pointer"`
	CacheRoot        string        `mapstructure:"cache_root"`
	TelemetryPath    string        `mapstructure:"telemetry_path"`
	HistoryDB        string        `mapstructure:"history_db"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	ErrorInterval    time.Duration `mapstructure:"error_interval"`
	Transition       time.Duration `mapstructure:"transition"`
	PreviewRadius    int           `mapstructure:"preview_radius"`
	FinalRadius      int           `mapstructure:"final_radius"`
	PreviewZipRatio  float64       `mapstructure:"preview_zip_ratio"`
	FinalZipRatio    float64       `mapstructure:"final_zip_ratio"`
	PreviewQuality   int           `mapstructure:"preview_quality"`
	FinalQuality     int           `mapstructure:"final_quality"`
	Appearance       string        `mapstructure:"appearance"` // forced-light | forced-dark | follow-host-theme
	Margin           int           `mapstructure:"margin"`
	TitleBar         int           `mapstructure:"title_bar"`
	Verbose          bool          `mapstructure:"verbose"`
	Overlay          OverlayConfig `mapstructure:"overlay"`
}

// Load reads configuration from viper, applying built-in defaults for
// any values not set by config file, environment, or flags.
func Load() Config {
	viper.SetDefault("bridge_socket", "")
	viper.SetDefault("wallpaper_pointer", "")
	viper.SetDefault("cache_root", "")
	viper.SetDefault("telemetry_path", "")
	viper.SetDefault("history_db", "")
	viper.SetDefault("poll_interval", "10s")
	viper.SetDefault("error_interval", "30s")
	viper.SetDefault("transition", "400ms")
	viper.SetDefault("preview_radius", 24)
	viper.SetDefault("final_radius", 12)
	viper.SetDefault("preview_zip_ratio", 8.0)
	viper.SetDefault("final_zip_ratio", 4.0)
	viper.SetDefault("preview_quality", 40)
	viper.SetDefault("final_quality", 80)
	viper.SetDefault("appearance", "follow-host-theme")
	viper.SetDefault("margin", 0)
	viper.SetDefault("title_bar", 28)
	viper.SetDefault("verbose", false)
	viper.SetDefault("overlay.enabled", true)
	viper.SetDefault("overlay.light_rgb", []int{250, 250, 250})
	viper.SetDefault("overlay.dark_rgb", []int{30, 30, 30})
	viper.SetDefault("overlay.min_alpha", 0.55)
	viper.SetDefault("overlay.max_alpha", 0.90)
	viper.SetDefault("overlay.low_threshold", 40)
	viper.SetDefault("overlay.high_threshold", 200)

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	return cfg
}

// Mode resolves the active brightness mode from the appearance setting
// and the host's theme signal.
func (c Config) Mode(hostDark bool) brightness.Mode {
	switch c.Appearance {
	case "forced-light":
		return brightness.Light
	case "forced-dark":
		return brightness.Dark
	default:
		if hostDark {
			return brightness.Dark
		}
		return brightness.Light
	}
}

// OverlayRGB returns the overlay base color for the given mode.
func (c Config) OverlayRGB(mode brightness.Mode) brightness.RGB {
	rgb := c.Overlay.LightRGB
	if mode == brightness.Dark {
		rgb = c.Overlay.DarkRGB
	}
	if len(rgb) != 3 {
		return brightness.RGB{}
	}
	return brightness.RGB{R: uint8(rgb[0]), G: uint8(rgb[1]), B: uint8(rgb[2])}
}

// AlphaParams returns the brightness-to-alpha mapping parameters.
func (c Config) AlphaParams() brightness.Params {
	return brightness.Params{
		MinAlpha:      c.Overlay.MinAlpha,
		MaxAlpha:      c.Overlay.MaxAlpha,
		LowThreshold:  c.Overlay.LowThreshold,
		HighThreshold: c.Overlay.HighThreshold,
	}
}
