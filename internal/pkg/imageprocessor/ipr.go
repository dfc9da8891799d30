package imageprocessor

import (
	"bytes"
	"fmt"
	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"

	_ "golang.org/x/image/webp"
)

const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
	FormatWEBP = "webp"

	DefaultPreviewSize = 256
	checkerCell        = 8
)

// Форматы, которые принимаются при загрузке пользователем
var uploadFormats = map[string]bool{FormatPNG: true, FormatJPEG: true}

type ImageParameters struct {
	PreviewSize int
}

type Ipr struct {
	imageParameters ImageParameters
	logger          *slog.Logger
}

func NewIpr(imageParameters ImageParameters, logger *slog.Logger) *Ipr {
	if imageParameters.PreviewSize <= 0 {
		imageParameters.PreviewSize = DefaultPreviewSize
	}
	return &Ipr{logger: logger,
		imageParameters: imageParameters}
}

// DecodeImage декодирует растровое изображение (png, jpeg, webp)
func DecodeImage(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("image data is empty")
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// CheckUploadFormat проверяет, что загруженный файл PNG или JPEG. Возвращает формат.
func CheckUploadFormat(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("file is empty")
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image config: %w", err)
	}
	if !uploadFormats[format] {
		return format, fmt.Errorf("unsupported image format %q, expected png or jpeg", format)
	}
	return format, nil
}

// ContentType MIME тип по имени формата из image.Decode
func ContentType(format string) string {
	switch format {
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	case FormatWEBP:
		return "image/webp"
	}
	return "application/octet-stream"
}

// Preview уменьшенная копия для страницы результата, всегда PNG.
func (ipr *Ipr) Preview(data []byte) ([]byte, error) {
	src, _, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return ipr.PreviewImage(src)
}

func (ipr *Ipr) PreviewImage(src image.Image) ([]byte, error) {
	size := ipr.imageParameters.PreviewSize
	b := src.Bounds()

	var result image.Image = src
	// Маленькие изображения не увеличиваем
	if b.Dx() > size || b.Dy() > size {
		ipr.logger.Debug("Fit preview", "width", b.Dx(), "height", b.Dy(), "size", size)
		result = imaging.Fit(src, size, size, imaging.Lanczos)
	}

	return EncodePNG(flattenOnChecker(result))
}

// flattenOnChecker подкладывает шахматный фон под прозрачные области
func flattenOnChecker(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	light := &image.Uniform{C: color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}}
	dark := &image.Uniform{C: color.RGBA{R: 0xbb, G: 0xbb, B: 0xbb, A: 0xff}}
	for y := 0; y < b.Dy(); y += checkerCell {
		for x := 0; x < b.Dx(); x += checkerCell {
			cell := image.Rect(x, y, x+checkerCell, y+checkerCell).Intersect(dst.Bounds())
			fill := light
			if (x/checkerCell+y/checkerCell)%2 == 1 {
				fill = dark
			}
			draw.Draw(dst, cell, fill, image.Point{}, draw.Src)
		}
	}

	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

func EncodePNG(img image.Image) ([]byte, error) {
	buf := new(bytes.Buffer)
	err := imaging.Encode(buf, img, imaging.PNG)
	if err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
