package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"grow/internal/graphics"
	"grow/internal/input"
	"grow/internal/loop"
	"grow/internal/metrics"
	"grow/internal/scene"
	"grow/internal/stats"
)

// Application owns the surface, the scene and the frame loop driving them.
type Application struct {
	config *Config
	logger *zap.Logger

	// Graphics backend
	graphicsBackend graphics.Backend
	surface         graphics.Surface

	scene      *scene.Scene
	controller *loop.Controller
	recorder   *metrics.Recorder
	input      *input.Queue

	startTime time.Time

	mu          sync.Mutex
	metricsAddr net.Addr
	cancelRun   context.CancelFunc
	cleaned     bool
}

// ApplicationError represents application-specific errors
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("Application %s error during %s: %v", e.Component, e.Operation, e.Err)
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}

// NewApplication creates the application from a validated configuration.
// A nil logger discards all output.
func NewApplication(cfg *Config, logger *zap.Logger) (*Application, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	app := &Application{
		config:    cfg,
		logger:    logger,
		recorder:  metrics.NewRecorder(),
		input:     input.NewQueue(0),
		startTime: time.Now(),
	}

	if err := app.initializeGraphicsBackend(); err != nil {
		return nil, &ApplicationError{
			Component: "graphics",
			Operation: "backend setup",
			Err:       err,
		}
	}

	width, height := app.surface.GetSize()
	app.scene = scene.New(width, height, logger.Named("scene"))
	app.scene.AttachInput(app.input)
	app.scene.OnExitRequest(app.requestExit)
	if src, ok := app.surface.(graphics.InputSource); ok {
		src.AttachInput(app.input)
	}

	controller, err := loop.New(app.surface, app.scene, app.scene, cfg.LoopConfig(),
		loop.WithLogger(logger.Named("loop")),
		loop.WithPublisher(app.scene),
		loop.WithObserver(app.recorder),
	)
	if err != nil {
		_ = app.surface.Cleanup()
		_ = app.graphicsBackend.Cleanup()
		return nil, &ApplicationError{
			Component: "loop",
			Operation: "controller setup",
			Err:       err,
		}
	}
	app.controller = controller

	return app, nil
}

// initializeGraphicsBackend creates the backend and its surface
func (app *Application) initializeGraphicsBackend() error {
	backendType, err := graphics.ParseBackendType(app.config.Video.Backend)
	if err != nil {
		return err
	}

	app.graphicsBackend, err = graphics.CreateBackend(backendType)
	if err != nil {
		return fmt.Errorf("failed to create graphics backend: %w", err)
	}

	graphicsConfig := app.config.GraphicsConfig()

	if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
		// If Ebitengine fails (e.g., no DISPLAY), fall back to headless mode
		if backendType != graphics.BackendEbitengine {
			return fmt.Errorf("failed to initialize graphics backend: %w", err)
		}

		app.logger.Warn("Ebitengine backend failed, falling back to headless mode", zap.Error(err))

		app.graphicsBackend = graphics.NewHeadlessBackend()
		graphicsConfig.Headless = true
		if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
			return fmt.Errorf("failed to initialize fallback headless backend: %w", err)
		}
	}

	app.surface, err = app.graphicsBackend.CreateSurface(
		graphicsConfig.WindowTitle,
		graphicsConfig.WindowWidth,
		graphicsConfig.WindowHeight,
	)
	if err != nil {
		_ = app.graphicsBackend.Cleanup()
		return fmt.Errorf("failed to create surface: %w", err)
	}

	app.logger.Info("Graphics backend ready",
		zap.String("backend", app.graphicsBackend.GetName()),
		zap.Int("width", graphicsConfig.WindowWidth),
		zap.Int("height", graphicsConfig.WindowHeight))

	return nil
}

// Run starts the frame loop and blocks until ctx is done, the configured
// duration has elapsed, the window is closed or the loop fails. Window
// backends take over the calling goroutine, so Run must be called from main
// for them.
func (app *Application) Run(ctx context.Context) error {
	var cancel context.CancelFunc
	if d := app.config.Debug.Duration; d > 0 {
		ctx, cancel = context.WithTimeout(ctx, d)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	app.mu.Lock()
	app.cancelRun = cancel
	app.mu.Unlock()
	defer func() {
		app.mu.Lock()
		app.cancelRun = nil
		app.mu.Unlock()
	}()

	g, gctx := errgroup.WithContext(ctx)

	if app.config.Metrics.Listen != "" {
		if err := app.serveMetrics(gctx, g); err != nil {
			return &ApplicationError{Component: "metrics", Operation: "listen", Err: err}
		}
	}

	if err := app.controller.Start(gctx); err != nil {
		return &ApplicationError{Component: "loop", Operation: "start", Err: err}
	}

	g.Go(func() error {
		err := app.controller.Wait()
		cancel()
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		app.controller.Stop()
		return nil
	})

	if runner, ok := graphics.AsMainThreadRunner(app.surface); ok {
		if err := runner.Run(gctx); err != nil {
			app.logger.Error("Window loop failed", zap.Error(err))
			cancel()
			_ = g.Wait()
			return &ApplicationError{Component: "graphics", Operation: "window loop", Err: err}
		}
		// the window was closed
		cancel()
	}

	err := g.Wait()

	collector := app.controller.Stats()
	app.logger.Info("Frame loop finished",
		zap.String("frames", humanize.Comma(int64(collector.TotalFrames()))),
		zap.String("skipped", humanize.Comma(int64(collector.TotalSkipped()))),
		zap.String("average", stats.FormatRate(collector.AverageFPS())),
		zap.Duration("uptime", app.GetUptime()))

	if err != nil {
		return &ApplicationError{Component: "loop", Operation: "run", Err: err}
	}

	return nil
}

// requestExit ends the current Run as if its context had been cancelled
func (app *Application) requestExit() {
	app.mu.Lock()
	cancel := app.cancelRun
	app.mu.Unlock()

	if cancel != nil {
		cancel()
		return
	}
	app.controller.Stop()
}

// serveMetrics binds the metrics listener and serves it until ctx is done
func (app *Application) serveMetrics(ctx context.Context, g *errgroup.Group) error {
	ln, err := net.Listen("tcp", app.config.Metrics.Listen)
	if err != nil {
		return err
	}

	app.mu.Lock()
	app.metricsAddr = ln.Addr()
	app.mu.Unlock()

	mux := http.NewServeMux()
	mux.Handle(app.config.Metrics.Path, app.recorder.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	app.logger.Info("Serving metrics",
		zap.String("addr", ln.Addr().String()),
		zap.String("path", app.config.Metrics.Path))

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return nil
}

// Stop asks the frame loop to finish its current cycle and exit
func (app *Application) Stop() {
	app.controller.Stop()
}

// GetFPS returns the last published average frame rate
func (app *Application) GetFPS() float64 {
	return app.controller.AverageFPS()
}

// GetFrameCount returns the number of rendered frames
func (app *Application) GetFrameCount() uint64 {
	return app.controller.Stats().TotalFrames()
}

// GetUptime returns the time since the application was created
func (app *Application) GetUptime() time.Duration {
	return time.Since(app.startTime)
}

// GetConfig returns the application configuration
func (app *Application) GetConfig() *Config {
	return app.config
}

// Controller returns the frame loop controller
func (app *Application) Controller() *loop.Controller {
	return app.controller
}

// Scene returns the scene driven by the loop
func (app *Application) Scene() *scene.Scene {
	return app.scene
}

// Surface returns the render surface
func (app *Application) Surface() graphics.Surface {
	return app.surface
}

// Input returns the pointer event queue feeding the scene
func (app *Application) Input() *input.Queue {
	return app.input
}

// Recorder returns the metrics recorder
func (app *Application) Recorder() *metrics.Recorder {
	return app.recorder
}

// MetricsAddr returns the bound metrics address, nil until Run listens
func (app *Application) MetricsAddr() net.Addr {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.metricsAddr
}

// Cleanup stops the loop, waits for it and tears the surface down. The
// surface is released under the loop's surface lock so no cycle can hold the
// render target at the same time.
func (app *Application) Cleanup() error {
	app.mu.Lock()
	if app.cleaned {
		app.mu.Unlock()
		return nil
	}
	app.cleaned = true
	app.mu.Unlock()

	app.logger.Debug("Cleaning up application resources")

	app.controller.Stop()
	loopErr := app.controller.Wait()
	if loopErr != nil {
		app.logger.Debug("Loop had exited with an error", zap.Error(loopErr))
	}

	var errs []error

	if err := app.controller.WithSurfaceLocked(app.surface.Cleanup); err != nil {
		app.logger.Error("Surface cleanup error", zap.Error(err))
		errs = append(errs, &ApplicationError{Component: "graphics", Operation: "surface cleanup", Err: err})
	}

	if err := app.graphicsBackend.Cleanup(); err != nil {
		app.logger.Error("Graphics backend cleanup error", zap.Error(err))
		errs = append(errs, &ApplicationError{Component: "graphics", Operation: "backend cleanup", Err: err})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	app.logger.Info("Surface was shut down cleanly")

	return nil
}
