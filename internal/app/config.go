// Package app wires the frame loop, the scene and the graphics backend into
// a runnable application and loads its configuration.
package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"grow/internal/graphics"
	"grow/internal/logging"
	"grow/internal/loop"
	"grow/internal/pacing"
)

// EnvPrefix prefixes every environment variable read, e.g. GROW_LOOP_TARGET_FPS.
const EnvPrefix = "grow"

// Config holds all application configuration
type Config struct {
	Loop    LoopSection   `mapstructure:"loop"`
	Video   VideoConfig   `mapstructure:"video"`
	Debug   DebugConfig   `mapstructure:"debug"`
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Internal state
	configPath string
}

// LoopSection contains frame pacing and statistics settings
type LoopSection struct {
	TargetFPS    int           `mapstructure:"target_fps"`
	MaxCatchUp   int           `mapstructure:"max_catch_up"`
	StatInterval time.Duration `mapstructure:"stat_interval"`
	StatsWindow  int           `mapstructure:"stats_window"`
}

// VideoConfig contains surface configuration
type VideoConfig struct {
	Backend    string `mapstructure:"backend"` // "ebitengine", "headless", "terminal"
	Title      string `mapstructure:"title"`
	Width      int    `mapstructure:"width"`
	Height     int    `mapstructure:"height"`
	Fullscreen bool   `mapstructure:"fullscreen"`
	VSync      bool   `mapstructure:"vsync"`
	Filter     string `mapstructure:"filter"` // "nearest", "linear"
}

// DebugConfig contains logging and development options
type DebugConfig struct {
	LogLevel   string        `mapstructure:"log_level"`
	LogFormat  string        `mapstructure:"log_format"`
	Duration   time.Duration `mapstructure:"duration"` // 0 runs until interrupted
	DumpFrames []int         `mapstructure:"dump_frames"`
	DumpDir    string        `mapstructure:"dump_dir"`
}

// MetricsConfig contains the Prometheus endpoint settings
type MetricsConfig struct {
	Listen string `mapstructure:"listen"` // empty disables the endpoint
	Path   string `mapstructure:"path"`
}

// flagKeys maps command line flag names to configuration keys
var flagKeys = map[string]string{
	"backend":        "video.backend",
	"target-fps":     "loop.target_fps",
	"max-catch-up":   "loop.max_catch_up",
	"log-level":      "debug.log_level",
	"log-format":     "debug.log_format",
	"metrics-listen": "metrics.listen",
	"duration":       "debug.duration",
	"dump-frames":    "debug.dump_frames",
}

// NewFlagSet defines the command line flags understood by LoadConfig
func NewFlagSet(name string) *pflag.FlagSet {
	d := NewConfig()

	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.SortFlags = false

	flags.StringP("config", "c", "", "Path to configuration file (json, yaml or toml)")
	flags.StringP("backend", "b", d.Video.Backend, "Graphics backend: ebitengine, headless or terminal")
	flags.Int("target-fps", d.Loop.TargetFPS, "Target frames per second")
	flags.Int("max-catch-up", d.Loop.MaxCatchUp, "Maximum simulation steps taken without rendering to catch up")
	flags.String("log-level", d.Debug.LogLevel, "Log level: debug, info, warn or error")
	flags.String("log-format", d.Debug.LogFormat, "Log format: console or json")
	flags.String("metrics-listen", d.Metrics.Listen, "Serve Prometheus metrics on this address, e.g. :9090")
	flags.Duration("duration", d.Debug.Duration, "Stop after this long (0 runs until interrupted)")
	flags.IntSlice("dump-frames", nil, "Frame numbers to dump as PPM files (headless backend)")
	flags.BoolP("version", "v", false, "Show version information")
	flags.BoolP("help", "h", false, "Show help message")

	return flags
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Loop: LoopSection{
			TargetFPS:    pacing.DefaultTargetFPS,
			MaxCatchUp:   pacing.DefaultMaxCatchUpSteps,
			StatInterval: time.Second,
			StatsWindow:  10,
		},
		Video: VideoConfig{
			Backend: string(graphics.BackendEbitengine),
			Title:   "grow",
			Width:   480,
			Height:  320,
			VSync:   false,
			Filter:  "nearest",
		},
		Debug: DebugConfig{
			LogLevel:  "info",
			LogFormat: logging.FormatConsole,
			DumpDir:   ".",
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}

// setDefaults registers every key with viper so environment overrides and
// Unmarshal see it.
func setDefaults(v *viper.Viper) {
	d := NewConfig()

	v.SetDefault("loop.target_fps", d.Loop.TargetFPS)
	v.SetDefault("loop.max_catch_up", d.Loop.MaxCatchUp)
	v.SetDefault("loop.stat_interval", d.Loop.StatInterval)
	v.SetDefault("loop.stats_window", d.Loop.StatsWindow)

	v.SetDefault("video.backend", d.Video.Backend)
	v.SetDefault("video.title", d.Video.Title)
	v.SetDefault("video.width", d.Video.Width)
	v.SetDefault("video.height", d.Video.Height)
	v.SetDefault("video.fullscreen", d.Video.Fullscreen)
	v.SetDefault("video.vsync", d.Video.VSync)
	v.SetDefault("video.filter", d.Video.Filter)

	v.SetDefault("debug.log_level", d.Debug.LogLevel)
	v.SetDefault("debug.log_format", d.Debug.LogFormat)
	v.SetDefault("debug.duration", d.Debug.Duration)
	v.SetDefault("debug.dump_frames", []int{})
	v.SetDefault("debug.dump_dir", d.Debug.DumpDir)

	v.SetDefault("metrics.listen", d.Metrics.Listen)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// LoadConfig builds the configuration from defaults, the optional file at
// path, GROW_* environment variables and flags, in increasing precedence.
// With an empty path, grow.{json,yaml,toml} is looked up in . and ./config.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("grow")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, &ConfigError{Field: "file", Value: path, Err: err}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, &ConfigError{Field: key, Value: name, Err: err}
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, &ConfigError{Field: "config", Err: err}
	}
	cfg.configPath = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	if c.Loop.TargetFPS < 1 || c.Loop.TargetFPS > pacing.MaxTargetFPS {
		return &ConfigError{Field: "loop.target_fps", Value: c.Loop.TargetFPS,
			Err: fmt.Errorf("must be between 1 and %d", pacing.MaxTargetFPS)}
	}

	if c.Loop.MaxCatchUp < 0 {
		return &ConfigError{Field: "loop.max_catch_up", Value: c.Loop.MaxCatchUp,
			Err: errors.New("must not be negative")}
	}

	if c.Loop.StatInterval < time.Second || c.Loop.StatInterval%time.Second != 0 {
		return &ConfigError{Field: "loop.stat_interval", Value: c.Loop.StatInterval,
			Err: errors.New("must be a positive whole number of seconds")}
	}

	if c.Loop.StatsWindow < 1 {
		return &ConfigError{Field: "loop.stats_window", Value: c.Loop.StatsWindow,
			Err: errors.New("must be at least 1")}
	}

	if _, err := graphics.ParseBackendType(c.Video.Backend); err != nil {
		return &ConfigError{Field: "video.backend", Value: c.Video.Backend, Err: err}
	}

	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		return &ConfigError{Field: "video.width/height", Value: fmt.Sprintf("%dx%d", c.Video.Width, c.Video.Height),
			Err: errors.New("invalid surface dimensions")}
	}

	switch c.Video.Filter {
	case "nearest", "linear":
	default:
		return &ConfigError{Field: "video.filter", Value: c.Video.Filter,
			Err: errors.New("must be nearest or linear")}
	}

	if !logging.ValidLevel(c.Debug.LogLevel) {
		return &ConfigError{Field: "debug.log_level", Value: c.Debug.LogLevel,
			Err: errors.New("unknown log level")}
	}

	if !logging.ValidFormat(c.Debug.LogFormat) {
		return &ConfigError{Field: "debug.log_format", Value: c.Debug.LogFormat,
			Err: errors.New("must be console or json")}
	}

	if c.Debug.Duration < 0 {
		return &ConfigError{Field: "debug.duration", Value: c.Debug.Duration,
			Err: errors.New("must not be negative")}
	}

	for _, n := range c.Debug.DumpFrames {
		if n < 1 {
			return &ConfigError{Field: "debug.dump_frames", Value: n,
				Err: errors.New("frame numbers start at 1")}
		}
	}

	if c.Metrics.Listen != "" && !strings.HasPrefix(c.Metrics.Path, "/") {
		return &ConfigError{Field: "metrics.path", Value: c.Metrics.Path,
			Err: errors.New("must start with /")}
	}

	return nil
}

// LoopConfig returns the frame loop parameters
func (c *Config) LoopConfig() loop.Config {
	return loop.Config{
		TargetFPS:       c.Loop.TargetFPS,
		MaxCatchUpSteps: c.Loop.MaxCatchUp,
		StatInterval:    c.Loop.StatInterval,
		StatsWindowSize: c.Loop.StatsWindow,
	}
}

// GraphicsConfig returns the backend configuration
func (c *Config) GraphicsConfig() graphics.Config {
	return graphics.Config{
		WindowTitle:  c.Video.Title,
		WindowWidth:  c.Video.Width,
		WindowHeight: c.Video.Height,
		Fullscreen:   c.Video.Fullscreen,
		VSync:        c.Video.VSync,
		Filter:       c.Video.Filter,
		Headless:     c.Video.Backend == string(graphics.BackendHeadless),
		DumpFrames:   c.Debug.DumpFrames,
		DumpDir:      c.Debug.DumpDir,
		Debug:        strings.EqualFold(c.Debug.LogLevel, "debug"),
	}
}

// GetConfigPath returns the path of the file the configuration was read
// from, empty when none was found
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s' with value '%v': %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
