package opermanager

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"inpaintui/internal/pkg/generation"
	"inpaintui/internal/pkg/imageprocessor"
	"inpaintui/internal/pkg/metrics"
	"inpaintui/internal/pkg/sdapi"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	mu      sync.Mutex
	calls   int
	err     error
	release chan struct{}
	started chan struct{}
}

func (s *stubGenerator) Img2Img(ctx context.Context, req generation.Request) (*sdapi.Result, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	data := pngBytes(64, 32)
	img, format, err := imageprocessor.DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return &sdapi.Result{Image: img, Format: format, Data: data, Elapsed: 5 * time.Millisecond}, nil
}

func (s *stubGenerator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func pngBytes(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{G: 255, A: 255}}, image.Point{}, draw.Src)
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func validRequest() generation.Request {
	req := generation.Defaults()
	req.InitImage = pngBytes(16, 16)
	req.MaskImage = pngBytes(16, 16)
	return req
}

func newTestOperMngr(generator Generator) (*OperMngr, *metrics.AppMetrics) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appMetrics := metrics.NewAppMetrics()
	ipr := imageprocessor.NewIpr(imageprocessor.ImageParameters{PreviewSize: 8}, logger)
	return NewOperMngr(generator, time.Minute, ipr, appMetrics, logger), appMetrics
}

func TestOperMngr_Run_Success(t *testing.T) {
	generator := &stubGenerator{}
	op, appMetrics := newTestOperMngr(generator)

	operation, err := op.Run(context.Background(), validRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, operation.Id)
	assert.Equal(t, "png", operation.Format)
	assert.Equal(t, "image/png", operation.ContentType)
	assert.Equal(t, 64, operation.Width)
	assert.Equal(t, 32, operation.Height)
	assert.Equal(t, "small leaves", operation.Prompt)

	stored, err := op.GetOperation(operation.Id)
	require.NoError(t, err)
	assert.Same(t, operation, stored)
	assert.Equal(t, 1, op.ResultCount())

	status, since := op.State()
	assert.Equal(t, StatusIdle, status)
	assert.True(t, since.IsZero())

	assert.Equal(t, int64(1), appMetrics.GetRequestTypeMetricsSafe(METRIC_RUN).Success.Count())
	assert.Equal(t, int64(1), appMetrics.GetTimerSafe(METRIC_BACKEND_LATENCY).Count())
}

func TestOperMngr_Run_MissingImagesNeverCallsBackend(t *testing.T) {
	generator := &stubGenerator{}
	op, appMetrics := newTestOperMngr(generator)

	req := validRequest()
	req.MaskImage = nil

	_, err := op.Run(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, generation.KindValidation, generation.KindOf(err))
	assert.Equal(t, 0, generator.Calls())
	assert.Equal(t, int64(1), appMetrics.GetRequestTypeMetricsSafe(METRIC_TEMPLATE_RUN_ERROR+"validation").Errors.Count())
}

func TestOperMngr_Run_BackendErrorPassedThrough(t *testing.T) {
	generator := &stubGenerator{err: generation.ProtocolError("backend returned no images", nil)}
	op, appMetrics := newTestOperMngr(generator)

	_, err := op.Run(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, generation.KindProtocol, generation.KindOf(err))
	assert.Equal(t, 0, op.ResultCount())
	assert.Equal(t, int64(1), appMetrics.GetRequestTypeMetricsSafe(METRIC_RUN).Errors.Count())

	status, _ := op.State()
	assert.Equal(t, StatusIdle, status)
}

func TestOperMngr_Run_BusyWhilePending(t *testing.T) {
	generator := &stubGenerator{release: make(chan struct{}), started: make(chan struct{}, 1)}
	op, _ := newTestOperMngr(generator)

	firstDone := make(chan error, 1)
	go func() {
		_, err := op.Run(context.Background(), validRequest())
		firstDone <- err
	}()
	<-generator.started

	status, since := op.State()
	assert.Equal(t, StatusPending, status)
	assert.False(t, since.IsZero())

	_, err := op.Run(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, generation.KindBusy, generation.KindOf(err))

	close(generator.release)
	require.NoError(t, <-firstDone)
	assert.Equal(t, 1, generator.Calls())

	status, _ = op.State()
	assert.Equal(t, StatusIdle, status)
}

func TestOperMngr_Run_IdenticalRequestsAreIndependent(t *testing.T) {
	generator := &stubGenerator{}
	op, _ := newTestOperMngr(generator)
	req := validRequest()

	first, err := op.Run(context.Background(), req)
	require.NoError(t, err)
	second, err := op.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, generator.Calls())
	assert.NotEqual(t, first.Id, second.Id)
	assert.Equal(t, 2, op.ResultCount())
}

func TestOperMngr_Run_CallerGoneDoesNotCancelBackend(t *testing.T) {
	generator := &stubGenerator{release: make(chan struct{}), started: make(chan struct{}, 1)}
	op, _ := newTestOperMngr(generator)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() {
		_, err := op.Run(ctx, validRequest())
		runDone <- err
	}()
	<-generator.started
	cancel()

	err := <-runDone
	require.Error(t, err)
	assert.Equal(t, generation.KindTransport, generation.KindOf(err))

	// Бэкенд ещё работает
	status, _ := op.State()
	assert.Equal(t, StatusPending, status)

	close(generator.release)
	assert.Eventually(t, func() bool {
		s, _ := op.State()
		return s == StatusIdle
	}, time.Second, 5*time.Millisecond)
}

func TestOperMngr_GetPreview(t *testing.T) {
	op, _ := newTestOperMngr(&stubGenerator{})

	operation, err := op.Run(context.Background(), validRequest())
	require.NoError(t, err)

	for _, kind := range []PreviewKind{PreviewInit, PreviewMask, PreviewResult} {
		preview, err := op.GetPreview(operation.Id, kind)
		require.NoError(t, err)

		img, _, err := image.Decode(bytes.NewReader(preview))
		require.NoError(t, err)
		assert.LessOrEqual(t, img.Bounds().Dx(), 8)
		assert.LessOrEqual(t, img.Bounds().Dy(), 8)

		again, err := op.GetPreview(operation.Id, kind)
		require.NoError(t, err)
		assert.Equal(t, preview, again)
	}

	_, err = op.GetPreview("missing", PreviewInit)
	assert.Error(t, err)
}

func TestParsePreviewKind(t *testing.T) {
	kind, err := ParsePreviewKind("mask")
	require.NoError(t, err)
	assert.Equal(t, PreviewMask, kind)

	_, err = ParsePreviewKind("other")
	assert.Error(t, err)
}
