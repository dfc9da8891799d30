package appinpaint

import (
	"fmt"
	"inpaintui/internal/pkg/imageprocessor"
	"inpaintui/internal/pkg/metrics"
	"inpaintui/internal/pkg/opermanager"
	"inpaintui/internal/pkg/rest"
	"inpaintui/internal/pkg/sdapi"
	"log/slog"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/samber/do"
)

// setupInjector регистрирует компоненты приложения. Создаются при первом обращении.
func setupInjector(options ApplOptions, logger *slog.Logger) *do.Injector {
	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		},
	})

	do.ProvideValue[ApplOptions](injector, options)
	do.ProvideValue[*slog.Logger](injector, logger)

	do.Provide[*metrics.AppMetrics](injector, func(i *do.Injector) (*metrics.AppMetrics, error) {
		return metrics.NewAppMetrics(), nil
	})
	do.Provide[*imageprocessor.Ipr](injector, func(i *do.Injector) (*imageprocessor.Ipr, error) {
		return imageprocessor.NewIpr(imageprocessor.ImageParameters{PreviewSize: options.PreviewSize}, logger), nil
	})
	do.Provide[opermanager.Generator](injector, func(i *do.Injector) (opermanager.Generator, error) {
		return sdapi.NewClient(sdapi.Options{
			Timeout:         options.RequestTimeoutDuration(),
			ModelCheckpoint: options.ModelCheckpoint,
		}, logger), nil
	})
	do.Provide[*opermanager.OperMngr](injector, func(i *do.Injector) (*opermanager.OperMngr, error) {
		return opermanager.NewOperMngr(
			do.MustInvoke[opermanager.Generator](i),
			options.ResultTTLDuration(),
			do.MustInvoke[*imageprocessor.Ipr](i),
			do.MustInvoke[*metrics.AppMetrics](i),
			logger,
		), nil
	})
	do.Provide[*rest.Rest](injector, func(i *do.Injector) (*rest.Rest, error) {
		return rest.NewRest(rest.Options{
			Port:           options.ListenPort,
			Defaults:       options.FormDefaults(),
			MaxUploadBytes: options.MaxUploadBytes(),
			RequestTimeout: options.RequestTimeoutDuration(),
			CertFile:       options.TLSCertFile,
			KeyFile:        options.TLSKeyFile,
		}, logger, do.MustInvoke[*opermanager.OperMngr](i), do.MustInvoke[*metrics.AppMetrics](i))
	})
	do.Provide[*scheduler](injector, newScheduler)

	return injector
}

// scheduler периодические задачи приложения
type scheduler struct {
	gocron.Scheduler
	logger *slog.Logger
}

func newScheduler(i *do.Injector) (*scheduler, error) {
	options := do.MustInvoke[ApplOptions](i)
	logger := do.MustInvoke[*slog.Logger](i)
	appMetrics := do.MustInvoke[*metrics.AppMetrics](i)

	scheduleLogLevel := gocron.LogLevelWarn
	if strings.EqualFold(options.LogLevel, "DEBUG") {
		scheduleLogLevel = gocron.LogLevelDebug
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC),
		gocron.WithLogger(
			gocron.NewLogger(scheduleLogLevel),
		))
	if err != nil {
		return nil, fmt.Errorf("error create scheduler: %w", err)
	}

	// Периодический вывод метрик в лог
	_, err = s.NewJob(
		gocron.DurationJob(options.MetricsLogDuration()),
		gocron.NewTask(
			func() {
				appMetrics.LogOnce(logger)
			},
		),
	)
	if err != nil {
		return nil, fmt.Errorf("error create metrics job: %w", err)
	}

	return &scheduler{Scheduler: s, logger: logger}, nil
}

// Shutdown вызывается injector.Shutdown
func (s *scheduler) Shutdown() error {
	s.logger.Info("Stop scheduler")
	return s.Scheduler.Shutdown()
}
