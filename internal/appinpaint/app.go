package appinpaint

import (
	"context"
	"errors"
	"fmt"
	"inpaintui/internal/pkg/mylogger"
	"inpaintui/internal/pkg/rest"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/joho/godotenv"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

type InpaintApp struct {
	options   ApplOptions
	logger    *slog.Logger
	logCloser io.Closer
	injector  *do.Injector
	restObj   *rest.Rest
	scheduler *scheduler
}

func NewInpaintApp() (*InpaintApp, error) {
	// .env необязателен
	_ = godotenv.Load()

	options, err := readOptions(optionsPath())
	if err != nil {
		return nil, fmt.Errorf("can not read options: %w", err)
	}

	logger, logCloser := mylogger.NewLogger(mylogger.Options{
		Level:    options.LogLevel,
		FileName: options.LogFile,
	}, os.Stdout)

	logger.Info("Application started", slog.String("status", "OK"))
	logger.Error("This is not error. Current options", "options", spew.Sprintf("%+v", options))
	logTimezoneConfiguration(logger)

	injector := setupInjector(options, logger)

	restObj, err := do.Invoke[*rest.Rest](injector)
	if err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("error create Rest: %w", err)
	}
	sched, err := do.Invoke[*scheduler](injector)
	if err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("error create scheduler: %w", err)
	}

	return &InpaintApp{
		options:   options,
		logger:    logger,
		logCloser: logCloser,
		injector:  injector,
		restObj:   restObj,
		scheduler: sched,
	}, nil
}

// Start блокируется до сигнала остановки или ошибки веб-сервера
func (app *InpaintApp) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.scheduler.Start()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := app.restObj.Start(); err != nil {
			return fmt.Errorf("error start rest: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		app.logger.Info("Stopping web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.restObj.Shutdown(shutdownCtx)
	})

	err := group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		app.logger.Error("Application stopped with error", "error", err)
		return err
	}
	app.logger.Info("Application stopped")
	return nil
}

func (app *InpaintApp) Stop() {
	if err := app.injector.Shutdown(); err != nil {
		app.logger.Error("Error shutdown services", "error", err)
	}
	_ = app.logCloser.Close()
}

func logTimezoneConfiguration(logger *slog.Logger) {
	now := time.Now()

	tz := os.Getenv("TZ")
	if tz == "" {
		tz = "not set"
	}
	_, err := os.Stat("/etc/localtime")

	logger.Info("=== CHECKING THE TIME CONFIGURATION ===")
	logger.Info(fmt.Sprintf("= The final timezone: %s", now.Location()))
	logger.Info(fmt.Sprintf("= Current time: %s", now.Format("2006-01-02 15:04:05 MST")))
	logger.Info(fmt.Sprintf("= UTC     time: %s", now.UTC().Format("2006-01-02 15:04:05 MST")))
	logger.Info(fmt.Sprintf("= TZ variable: %s, /etc/localtime mounted: %t", tz, err == nil))
	logger.Info("=====================================")
}
