package opermanager

import (
	"fmt"
	"inpaintui/internal/pkg/generation"
	"inpaintui/internal/pkg/imageprocessor"
	"inpaintui/internal/pkg/sdapi"
	"sync"
	"time"
)

type PreviewKind string

const (
	PreviewInit   PreviewKind = "init"
	PreviewMask   PreviewKind = "mask"
	PreviewResult PreviewKind = "result"
)

func ParsePreviewKind(s string) (PreviewKind, error) {
	switch PreviewKind(s) {
	case PreviewInit, PreviewMask, PreviewResult:
		return PreviewKind(s), nil
	}
	return "", fmt.Errorf("unknown preview kind %q", s)
}

// Operation результат успешного запуска, хранится только для показа
type Operation struct {
	Id          string
	CreatedAt   time.Time
	Elapsed     time.Duration
	Format      string
	ContentType string
	Width       int
	Height      int
	Info        string
	Prompt      string

	data      []byte
	initImage []byte
	maskImage []byte

	mu       sync.Mutex
	previews map[PreviewKind][]byte
}

func newOperation(id string, result *sdapi.Result, req generation.Request) *Operation {
	b := result.Image.Bounds()
	return &Operation{
		Id:          id,
		CreatedAt:   time.Now(),
		Elapsed:     result.Elapsed,
		Format:      result.Format,
		ContentType: imageprocessor.ContentType(result.Format),
		Width:       b.Dx(),
		Height:      b.Dy(),
		Info:        result.Info,
		Prompt:      req.Prompt,
		data:        result.Data,
		initImage:   req.InitImage,
		maskImage:   req.MaskImage,
		previews:    make(map[PreviewKind][]byte),
	}
}

// Data байты изображения в том виде, в каком их вернул бэкенд
func (o *Operation) Data() []byte {
	return o.data
}

func (o *Operation) preview(kind PreviewKind, ipr *imageprocessor.Ipr) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if cached, ok := o.previews[kind]; ok {
		return cached, nil
	}

	var source []byte
	switch kind {
	case PreviewInit:
		source = o.initImage
	case PreviewMask:
		source = o.maskImage
	case PreviewResult:
		source = o.data
	default:
		return nil, fmt.Errorf("unknown preview kind %q", kind)
	}

	preview, err := ipr.Preview(source)
	if err != nil {
		return nil, fmt.Errorf("error create %s preview: %w", kind, err)
	}
	o.previews[kind] = preview
	return preview, nil
}
