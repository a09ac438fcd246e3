package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grow/internal/loop"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, NewConfig().Loop, cfg.Loop)
	assert.Equal(t, "ebitengine", cfg.Video.Backend)
	assert.Equal(t, "info", cfg.Debug.LogLevel)
	assert.Empty(t, cfg.Metrics.Listen)
	assert.Empty(t, cfg.GetConfigPath())

	assert.Equal(t, loop.DefaultConfig(), cfg.LoopConfig())
}

func TestLoadConfigFromFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "grow.yaml",
			content: `
loop:
  target_fps: 30
  max_catch_up: 2
  stat_interval: 2s
video:
  backend: headless
debug:
  dump_frames: [1, 5]
`,
		},
		{
			name: "json",
			file: "grow.json",
			content: `{
  "loop": {"target_fps": 30, "max_catch_up": 2, "stat_interval": "2s"},
  "video": {"backend": "headless"},
  "debug": {"dump_frames": [1, 5]}
}`,
		},
		{
			name: "toml",
			file: "grow.toml",
			content: `
[loop]
target_fps = 30
max_catch_up = 2
stat_interval = "2s"

[video]
backend = "headless"

[debug]
dump_frames = [1, 5]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.content)

			cfg, err := LoadConfig(path, nil)
			require.NoError(t, err)

			assert.Equal(t, 30, cfg.Loop.TargetFPS)
			assert.Equal(t, 2, cfg.Loop.MaxCatchUp)
			assert.Equal(t, 2*time.Second, cfg.Loop.StatInterval)
			assert.Equal(t, 10, cfg.Loop.StatsWindow, "unset keys keep their defaults")
			assert.Equal(t, "headless", cfg.Video.Backend)
			assert.Equal(t, []int{1, 5}, cfg.Debug.DumpFrames)
			assert.Equal(t, path, cfg.GetConfigPath())
			assert.True(t, cfg.GraphicsConfig().Headless)
		})
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := writeConfig(t, "grow.yaml", "loop:\n  target_fps: 30\n  max_catch_up: 2\nvideo:\n  backend: terminal\n")

	t.Setenv("GROW_LOOP_TARGET_FPS", "40")
	t.Setenv("GROW_LOOP_MAX_CATCH_UP", "3")

	flags := NewFlagSet("test")
	require.NoError(t, flags.Parse([]string{"--target-fps", "60", "-b", "headless"}))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Loop.TargetFPS, "flag beats env and file")
	assert.Equal(t, 3, cfg.Loop.MaxCatchUp, "env beats file")
	assert.Equal(t, "headless", cfg.Video.Backend)
	assert.Equal(t, time.Second, cfg.Loop.StatInterval, "untouched flags do not override defaults")
}

func TestLoadConfigFlags(t *testing.T) {
	flags := NewFlagSet("test")
	require.NoError(t, flags.Parse([]string{
		"--backend=headless",
		"--duration=1500ms",
		"--dump-frames=2,4",
		"--log-format=json",
		"--metrics-listen=127.0.0.1:0",
	}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, cfg.Debug.Duration)
	assert.Equal(t, []int{2, 4}, cfg.Debug.DumpFrames)
	assert.Equal(t, "json", cfg.Debug.LogFormat)
	assert.Equal(t, "127.0.0.1:0", cfg.Metrics.Listen)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "file", cfgErr.Field)

	path := writeConfig(t, "grow.yaml", "loop:\n  target_fps: 5000\n")
	_, err = LoadConfig(path, nil)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "loop.target_fps", cfgErr.Field)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero fps", func(c *Config) { c.Loop.TargetFPS = 0 }, "loop.target_fps"},
		{"negative catch-up", func(c *Config) { c.Loop.MaxCatchUp = -1 }, "loop.max_catch_up"},
		{"sub-second interval", func(c *Config) { c.Loop.StatInterval = 500 * time.Millisecond }, "loop.stat_interval"},
		{"fractional interval", func(c *Config) { c.Loop.StatInterval = 1500 * time.Millisecond }, "loop.stat_interval"},
		{"empty window", func(c *Config) { c.Loop.StatsWindow = 0 }, "loop.stats_window"},
		{"unknown backend", func(c *Config) { c.Video.Backend = "sdl2" }, "video.backend"},
		{"zero width", func(c *Config) { c.Video.Width = 0 }, "video.width/height"},
		{"unknown filter", func(c *Config) { c.Video.Filter = "cubic" }, "video.filter"},
		{"unknown level", func(c *Config) { c.Debug.LogLevel = "chatty" }, "debug.log_level"},
		{"unknown format", func(c *Config) { c.Debug.LogFormat = "xml" }, "debug.log_format"},
		{"negative duration", func(c *Config) { c.Debug.Duration = -time.Second }, "debug.duration"},
		{"zero dump frame", func(c *Config) { c.Debug.DumpFrames = []int{0} }, "debug.dump_frames"},
		{"relative metrics path", func(c *Config) {
			c.Metrics.Listen = ":9090"
			c.Metrics.Path = "metrics"
		}, "metrics.path"},
	}

	require.NoError(t, NewConfig().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
