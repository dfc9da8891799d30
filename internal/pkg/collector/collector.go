package collector

import (
	"errors"
	"fmt"
	"inpaintui/internal/pkg/generation"
	"inpaintui/internal/pkg/imageprocessor"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Имена полей формы
const (
	FieldEndpoint          = "endpoint"
	FieldPrompt            = "prompt"
	FieldSteps             = "steps"
	FieldCfgScale          = "cfg_scale"
	FieldWidth             = "width"
	FieldHeight            = "height"
	FieldDenoisingStrength = "denoising_strength"
	FieldMaskBlur          = "mask_blur"
	FieldInvertMask        = "invert_mask"
	FieldInitImage         = "init_image"
	FieldMaskImage         = "mask_image"
)

const (
	DefaultMaxUploadBytes int64 = 20 << 20
	multipartMemory       int64 = 8 << 20
)

var checkboxOn = []string{"on", "true", "1", "yes"}

// Parse собирает generation.Request из multipart формы.
// Пустые поля получают значения из defaults. FormState всегда заполнен, даже при ошибке.
func Parse(r *http.Request, defaults generation.Request, maxUploadBytes int64) (generation.Request, FormState, error) {
	req := defaults
	req.InitImage = nil
	req.MaskImage = nil
	state := NewFormState(defaults)

	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}

	if err := r.ParseMultipartForm(min(multipartMemory, maxUploadBytes)); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return req, state, generation.NewError(generation.KindValidation,
				fmt.Sprintf("uploaded files are larger than %d MB", maxUploadBytes>>20), err)
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			return req, state, generation.NewError(generation.KindValidation, "form can not be parsed", err)
		}
		// Без файлов допускаем обычную форму, дальше сработает проверка изображений
		if err := r.ParseForm(); err != nil {
			return req, state, generation.NewError(generation.KindValidation, "form can not be parsed", err)
		}
	}

	var problems []string

	if v, ok := formValue(r, FieldEndpoint); ok {
		req.Endpoint = v
		state.Endpoint = v
	}
	// Пустой промпт допустим
	if _, present := r.Form[FieldPrompt]; present {
		req.Prompt = r.FormValue(FieldPrompt)
		state.Prompt = req.Prompt
	}

	parseInt(r, FieldSteps, &req.Steps, &state.Steps, &problems)
	parseFloat(r, FieldCfgScale, &req.CfgScale, &state.CfgScale, &problems)
	parseInt(r, FieldWidth, &req.Width, &state.Width, &problems)
	parseInt(r, FieldHeight, &req.Height, &state.Height, &problems)
	parseFloat(r, FieldDenoisingStrength, &req.DenoisingStrength, &state.DenoisingStrength, &problems)
	parseInt(r, FieldMaskBlur, &req.MaskBlur, &state.MaskBlur, &problems)

	req.InvertMask = lo.Contains(checkboxOn, strings.ToLower(strings.TrimSpace(r.FormValue(FieldInvertMask))))
	state.InvertMask = req.InvertMask

	var err error
	req.InitImage, state.InitImageName, err = readUpload(r, FieldInitImage)
	if err != nil {
		problems = append(problems, err.Error())
	}
	req.MaskImage, state.MaskImageName, err = readUpload(r, FieldMaskImage)
	if err != nil {
		problems = append(problems, err.Error())
	}

	if !req.HasImages() {
		return req, state, generation.ValidationError(generation.MissingImagesMessage)
	}
	if len(problems) > 0 {
		return req, state, generation.ValidationError(strings.Join(problems, "; "))
	}
	if err := req.Validate(); err != nil {
		return req, state, err
	}
	return req, state, nil
}

func formValue(r *http.Request, field string) (string, bool) {
	v := strings.TrimSpace(r.FormValue(field))
	return v, v != ""
}

func parseInt(r *http.Request, field string, target *int, echo *string, problems *[]string) {
	v, ok := formValue(r, field)
	if !ok {
		return
	}
	*echo = v
	n, err := strconv.Atoi(v)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("%s must be a whole number", field))
		return
	}
	*target = n
}

func parseFloat(r *http.Request, field string, target *float64, echo *string, problems *[]string) {
	v, ok := formValue(r, field)
	if !ok {
		return
	}
	*echo = v
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*problems = append(*problems, fmt.Sprintf("%s must be a number", field))
		return
	}
	*target = f
}

// readUpload читает файл формы. Отсутствующий файл не ошибка, вернётся nil.
func readUpload(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("%s can not be read", field)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, header.Filename, fmt.Errorf("%s can not be read", field)
	}
	if len(data) == 0 {
		return nil, header.Filename, nil
	}

	if _, err := imageprocessor.CheckUploadFormat(data); err != nil {
		return data, header.Filename, fmt.Errorf("%s must be a PNG or JPEG image", field)
	}
	return data, header.Filename, nil
}
