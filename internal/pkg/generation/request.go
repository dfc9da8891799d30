package generation

import (
	"fmt"
	"math"
	"net/url"
	"strings"
)

const (
	DefaultEndpoint          = "http://127.0.0.1:7860"
	DefaultPrompt            = "small leaves"
	DefaultSteps             = 20
	DefaultCfgScale          = 7.0
	DefaultSize              = 512
	DefaultDenoisingStrength = 0.75
	DefaultMaskBlur          = 4

	MinSteps     = 1
	MaxSteps     = 150
	MinCfgScale  = 1.0
	MaxCfgScale  = 30.0
	MinSize      = 64
	MaxSize      = 2048
	SizeStep     = 64
	MinDenoising = 0.0
	MaxDenoising = 1.0
	MinMaskBlur  = 0
	MaxMaskBlur  = 64
)

const MissingImagesMessage = "Please upload both an initial image and a mask image."

// Request параметры одного запуска inpainting. Живёт только в рамках одного действия пользователя.
type Request struct {
	Endpoint          string
	InitImage         []byte
	MaskImage         []byte
	Prompt            string
	Steps             int
	CfgScale          float64
	Width             int
	Height            int
	DenoisingStrength float64
	MaskBlur          int
	InvertMask        bool
}

// Defaults значения формы по умолчанию
func Defaults() Request {
	return Request{
		Endpoint:          DefaultEndpoint,
		Prompt:            DefaultPrompt,
		Steps:             DefaultSteps,
		CfgScale:          DefaultCfgScale,
		Width:             DefaultSize,
		Height:            DefaultSize,
		DenoisingStrength: DefaultDenoisingStrength,
		MaskBlur:          DefaultMaskBlur,
	}
}

// HasImages оба изображения загружены
func (r Request) HasImages() bool {
	return len(r.InitImage) > 0 && len(r.MaskImage) > 0
}

// Validate проверяет запрос перед отправкой. Возвращает *Error с KindValidation.
func (r Request) Validate() error {
	// Без изображений остальное не проверяем
	if !r.HasImages() {
		return ValidationError(MissingImagesMessage)
	}

	var problems []string

	if err := validateEndpoint(r.Endpoint); err != nil {
		problems = append(problems, err.Error())
	}
	if r.Steps < MinSteps || r.Steps > MaxSteps {
		problems = append(problems, fmt.Sprintf("steps must be between %d and %d", MinSteps, MaxSteps))
	}
	if !inRange(r.CfgScale, MinCfgScale, MaxCfgScale) {
		problems = append(problems, fmt.Sprintf("CFG scale must be between %.1f and %.1f", MinCfgScale, MaxCfgScale))
	}
	if !validSize(r.Width) {
		problems = append(problems, fmt.Sprintf("width must be a multiple of %d between %d and %d", SizeStep, MinSize, MaxSize))
	}
	if !validSize(r.Height) {
		problems = append(problems, fmt.Sprintf("height must be a multiple of %d between %d and %d", SizeStep, MinSize, MaxSize))
	}
	if !inRange(r.DenoisingStrength, MinDenoising, MaxDenoising) {
		problems = append(problems, fmt.Sprintf("denoising strength must be between %.1f and %.1f", MinDenoising, MaxDenoising))
	}
	if r.MaskBlur < MinMaskBlur || r.MaskBlur > MaxMaskBlur {
		problems = append(problems, fmt.Sprintf("mask blur must be between %d and %d", MinMaskBlur, MaxMaskBlur))
	}

	if len(problems) > 0 {
		return ValidationError(strings.Join(problems, "; "))
	}
	return nil
}

// String без содержимого изображений, для логов
func (r Request) String() string {
	return fmt.Sprintf("Endpoint: %s, Prompt: %q, Steps: %d, CfgScale: %.2f, Size: %dx%d, Denoising: %.2f, MaskBlur: %d, InvertMask: %t, InitImage: %d bytes, MaskImage: %d bytes",
		r.Endpoint, r.Prompt, r.Steps, r.CfgScale, r.Width, r.Height, r.DenoisingStrength, r.MaskBlur, r.InvertMask, len(r.InitImage), len(r.MaskImage))
}

func validSize(v int) bool {
	return v >= MinSize && v <= MaxSize && v%SizeStep == 0
}

// inRange ложно для NaN
func inRange(v, low, high float64) bool {
	return !math.IsNaN(v) && v >= low && v <= high
}

func validateEndpoint(endpoint string) error {
	if strings.TrimSpace(endpoint) == "" {
		return fmt.Errorf("endpoint URL is required")
	}
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return fmt.Errorf("endpoint URL is invalid: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint URL must start with http:// or https://")
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint URL must contain a host")
	}
	// К адресу дописывается путь API
	if u.RawQuery != "" || u.ForceQuery || u.Fragment != "" {
		return fmt.Errorf("endpoint URL must not contain a query or fragment")
	}
	return nil
}
