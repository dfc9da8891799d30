package collector

import (
	"inpaintui/internal/pkg/generation"
	"strconv"
)

// FormState значения формы для одной отрисовки страницы.
// Создаётся заново на каждый запрос, между запросами не хранится.
type FormState struct {
	Endpoint          string
	Prompt            string
	Steps             string
	CfgScale          string
	Width             string
	Height            string
	DenoisingStrength string
	MaskBlur          string
	InvertMask        bool

	// Файлы в форму вернуть нельзя, показываем только имена
	InitImageName string
	MaskImageName string

	Error  string
	Limits Limits
}

// Limits границы и шаги полей для атрибутов min/max/step
type Limits struct {
	MinSteps, MaxSteps         int
	MinCfgScale, MaxCfgScale   float64
	CfgScaleStep               float64
	MinSize, MaxSize, SizeStep int
	MinDenoising, MaxDenoising float64
	DenoisingStep              float64
	MinMaskBlur, MaxMaskBlur   int
}

func DefaultLimits() Limits {
	return Limits{
		MinSteps:      generation.MinSteps,
		MaxSteps:      generation.MaxSteps,
		MinCfgScale:   generation.MinCfgScale,
		MaxCfgScale:   generation.MaxCfgScale,
		CfgScaleStep:  0.5,
		MinSize:       generation.MinSize,
		MaxSize:       generation.MaxSize,
		SizeStep:      generation.SizeStep,
		MinDenoising:  generation.MinDenoising,
		MaxDenoising:  generation.MaxDenoising,
		DenoisingStep: 0.05,
		MinMaskBlur:   generation.MinMaskBlur,
		MaxMaskBlur:   generation.MaxMaskBlur,
	}
}

func NewFormState(req generation.Request) FormState {
	return FormState{
		Endpoint:          req.Endpoint,
		Prompt:            req.Prompt,
		Steps:             strconv.Itoa(req.Steps),
		CfgScale:          formatFloat(req.CfgScale),
		Width:             strconv.Itoa(req.Width),
		Height:            strconv.Itoa(req.Height),
		DenoisingStrength: formatFloat(req.DenoisingStrength),
		MaskBlur:          strconv.Itoa(req.MaskBlur),
		InvertMask:        req.InvertMask,
		Limits:            DefaultLimits(),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
