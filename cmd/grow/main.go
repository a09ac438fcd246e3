// Package main implements the grow executable.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"grow/internal/app"
	"grow/internal/logging"
	"grow/internal/stats"
	"grow/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := app.NewFlagSet("grow")
	flags.Usage = func() { printUsage(flags) }

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if help, _ := flags.GetBool("help"); help {
		printUsage(flags)
		return 0
	}

	if showVersion, _ := flags.GetBool("version"); showVersion {
		version.PrintBuildInfo(os.Stdout)
		return 0
	}

	configPath, _ := flags.GetString("config")

	cfg, err := app.LoadConfig(configPath, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Debug.LogLevel, cfg.Debug.LogFormat, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("grow starting",
		zap.String("version", version.GetVersion()),
		zap.String("config", cfg.GetConfigPath()),
		zap.String("backend", cfg.Video.Backend),
		zap.Int("target_fps", cfg.Loop.TargetFPS))

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		logger.Error("Failed to create application", zap.Error(err))
		return 1
	}

	// Set up graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := application.Run(ctx)

	if err := application.Cleanup(); err != nil {
		logger.Error("Application cleanup error", zap.Error(err))
	}

	if runErr != nil {
		logger.Error("Application run failed", zap.Error(runErr))
		return 1
	}

	fmt.Printf("Session statistics:\n")
	fmt.Printf("   Frames rendered: %d\n", application.GetFrameCount())
	fmt.Printf("   Session time:    %v\n", application.GetUptime().Round(time.Millisecond))
	fmt.Printf("   Average:         %s\n", stats.FormatRate(application.GetFPS()))

	return 0
}

func printUsage(flags *pflag.FlagSet) {
	fmt.Println("grow - frame-paced game loop")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Runs a fixed-rate update/render loop with frame skipping and a rolling")
	fmt.Println("  frame rate estimate, drawing a bouncing droid and the measured FPS.")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  grow [options]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Print(flags.FlagUsages())
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  grow                                   # Open a window at 50 FPS")
	fmt.Println("  grow -b terminal --target-fps 20       # Draw into the terminal")
	fmt.Println("  grow -b headless --duration 5s         # Run headless for five seconds")
	fmt.Println("  grow --metrics-listen :9090            # Expose /metrics")
	fmt.Println()
	fmt.Println("CONFIGURATION:")
	fmt.Println("  Config file: ./grow.{json,yaml,toml} or ./config/grow.*")
	fmt.Println("  Environment: GROW_<SECTION>_<KEY>, e.g. GROW_LOOP_TARGET_FPS=30")
	fmt.Println()
	fmt.Println("  Escape closes the window.")
}
