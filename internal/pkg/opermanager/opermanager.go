package opermanager

import (
	"context"
	"fmt"
	"inpaintui/internal/pkg/generation"
	"inpaintui/internal/pkg/imageprocessor"
	"inpaintui/internal/pkg/metrics"
	"inpaintui/internal/pkg/sdapi"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Status состояние менеджера: ожидание или выполняется запрос к бэкенду
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
)

const (
	METRIC_RUN                 = "RUN"
	METRIC_TEMPLATE_RUN_ERROR  = "RUN_ERROR_"
	METRIC_BACKEND_LATENCY     = "BACKEND_LATENCY"
	DefaultResultTTL           = 30 * time.Minute
	resultCacheCleanupInterval = 10 * time.Minute
)

// Generator выполняет один запрос img2img
type Generator interface {
	Img2Img(ctx context.Context, req generation.Request) (*sdapi.Result, error)
}

type outcome struct {
	result *sdapi.Result
	err    error
}

type OperMngr struct {
	generator Generator
	results   *cache.Cache
	logger    *slog.Logger
	ipr       *imageprocessor.Ipr
	metrics   *metrics.AppMetrics

	// Держится всё время, пока запрос к бэкенду выполняется
	pending      sync.Mutex
	stateMu      sync.RWMutex
	status       Status
	pendingSince time.Time
}

func NewOperMngr(generator Generator,
	resultTTL time.Duration,
	ipr *imageprocessor.Ipr,
	metrics *metrics.AppMetrics,
	logger *slog.Logger) *OperMngr {
	if resultTTL <= 0 {
		resultTTL = DefaultResultTTL
	}

	return &OperMngr{
		generator: generator,
		results:   cache.New(resultTTL, resultCacheCleanupInterval),
		logger:    logger,
		ipr:       ipr,
		metrics:   metrics,
		status:    StatusIdle,
	}
}

// Run проверяет запрос и выполняет один вызов бэкенда.
// Ошибка всегда содержит generation.Kind.
func (op *OperMngr) Run(ctx context.Context, req generation.Request) (*Operation, error) {
	op.logger.Info("Start run operation", "request", req.String())

	if err := req.Validate(); err != nil {
		op.logger.Warn("Request is not valid", "error", err)
		op.countError(err)
		return nil, err
	}

	if !op.pending.TryLock() {
		err := generation.NewError(generation.KindBusy, "previous request is still processing, wait for it to finish", nil)
		op.logger.Warn("Run rejected", "error", err)
		op.countError(err)
		return nil, err
	}
	op.setStatus(StatusPending)

	// Вызов не отменяется после отправки, ограничен только таймаутом клиента
	done := make(chan outcome, 1)
	go func() {
		var out outcome
		// Сначала освобождаем, потом отдаём результат
		defer func() { done <- out }()
		defer op.release()
		out.result, out.err = op.generator.Img2Img(context.WithoutCancel(ctx), req)
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		op.logger.Warn("Caller stopped waiting for run", "error", ctx.Err())
		err := generation.TransportError("request was abandoned before the backend answered", ctx.Err())
		op.countError(err)
		return nil, err
	}

	if out.err != nil {
		op.logger.Error("Run failed", "kind", generation.KindOf(out.err), "error", out.err)
		op.countError(out.err)
		return nil, out.err
	}

	op.metrics.UpdateTimer(METRIC_BACKEND_LATENCY, out.result.Elapsed)
	op.metrics.IncrementSuccessRequest(METRIC_RUN)

	operation := newOperation(uuid.NewString(), out.result, req)
	op.results.SetDefault(operation.Id, operation)
	op.logger.Info("Run completed", "operationId", operation.Id, "format", operation.Format, "elapsed", operation.Elapsed)
	return operation, nil
}

// State текущее состояние и время начала выполняемого запроса
func (op *OperMngr) State() (Status, time.Time) {
	op.stateMu.RLock()
	defer op.stateMu.RUnlock()
	return op.status, op.pendingSince
}

func (op *OperMngr) GetOperation(id string) (*Operation, error) {
	value, ok := op.results.Get(id)
	if !ok {
		return nil, fmt.Errorf("operation not found %v", id)
	}
	return value.(*Operation), nil
}

// GetPreview уменьшенное изображение операции. Считается один раз.
func (op *OperMngr) GetPreview(id string, kind PreviewKind) ([]byte, error) {
	operation, err := op.GetOperation(id)
	if err != nil {
		return nil, err
	}
	return operation.preview(kind, op.ipr)
}

func (op *OperMngr) ResultCount() int {
	return op.results.ItemCount()
}

func (op *OperMngr) setStatus(status Status) {
	op.stateMu.Lock()
	defer op.stateMu.Unlock()
	op.status = status
	if status == StatusPending {
		op.pendingSince = time.Now()
	} else {
		op.pendingSince = time.Time{}
	}
}

func (op *OperMngr) release() {
	op.setStatus(StatusIdle)
	op.pending.Unlock()
}

// CountRejected учитывает запуск, отклонённый до вызова Run (ошибка разбора формы)
func (op *OperMngr) CountRejected(err error) {
	op.logger.Warn("Request is not valid", "error", err)
	op.countError(err)
}

func (op *OperMngr) countError(err error) {
	op.metrics.IncrementErrorRequest(METRIC_RUN)
	op.metrics.IncrementErrorRequest(METRIC_TEMPLATE_RUN_ERROR + string(generation.KindOf(err)))
}
