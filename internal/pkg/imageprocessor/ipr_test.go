package imageprocessor

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isRed проверяет, что цвет красный
func isRed(c color.Color) bool {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	return rgba.R >= 250 && rgba.G <= 5 && rgba.B <= 5 && rgba.A >= 250
}

// isGray проверяет, что цвет серый, как фон шахматки
func isGray(c color.Color) bool {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	return rgba.R == rgba.G && rgba.G == rgba.B && rgba.R >= 0xbb && rgba.A == 0xff
}

func encodeToJPEG(img image.Image) []byte {
	buf := new(bytes.Buffer)
	err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 90})
	if err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func encodeToPNG(img image.Image) []byte {
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// createRedImage создаёт красное изображение заданного размера
func createRedImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	red := color.RGBA{255, 0, 0, 255}
	draw.Draw(img, img.Bounds(), &image.Uniform{red}, image.Point{}, draw.Src)
	return img
}

func newTestIpr() *Ipr {
	return NewIpr(ImageParameters{PreviewSize: 100}, slog.Default())
}

func TestDecodeImage(t *testing.T) {
	tests := []struct {
		name       string
		data       []byte
		wantFormat string
		wantErr    bool
	}{
		{"png", encodeToPNG(createRedImage(10, 20)), FormatPNG, false},
		{"jpeg", encodeToJPEG(createRedImage(10, 20)), FormatJPEG, false},
		{"garbage", []byte("not an image"), "", true},
		{"empty", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, format, err := DecodeImage(tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFormat, format)
			assert.Equal(t, 10, img.Bounds().Dx())
			assert.Equal(t, 20, img.Bounds().Dy())
		})
	}
}

func TestCheckUploadFormat(t *testing.T) {
	gifBuf := new(bytes.Buffer)
	require.NoError(t, gif.Encode(gifBuf, createRedImage(4, 4), nil))

	format, err := CheckUploadFormat(encodeToPNG(createRedImage(4, 4)))
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, format)

	format, err = CheckUploadFormat(encodeToJPEG(createRedImage(4, 4)))
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, format)

	_, err = CheckUploadFormat(gifBuf.Bytes())
	assert.Error(t, err, "gif is not accepted")

	_, err = CheckUploadFormat([]byte("plain text"))
	assert.Error(t, err)

	_, err = CheckUploadFormat(nil)
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", ContentType(FormatPNG))
	assert.Equal(t, "image/jpeg", ContentType(FormatJPEG))
	assert.Equal(t, "image/webp", ContentType(FormatWEBP))
	assert.Equal(t, "application/octet-stream", ContentType("bmp"))
}

// ========================================
// ТЕСТ: большое изображение уменьшается с сохранением пропорций
// ========================================
func TestIpr_Preview_FitLarge(t *testing.T) {
	ipr := newTestIpr()

	preview, err := ipr.Preview(encodeToJPEG(createRedImage(400, 200)))
	require.NoError(t, err)

	result, format, err := image.Decode(bytes.NewReader(preview))
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	b := result.Bounds()
	assert.Equal(t, 100, b.Dx())
	assert.Equal(t, 50, b.Dy())
	assert.True(t, isRed(result.At(50, 25)), "center must be red")
}

// ========================================
// ТЕСТ: маленькое изображение не увеличивается
// ========================================
func TestIpr_Preview_SmallUnchanged(t *testing.T) {
	ipr := newTestIpr()

	preview, err := ipr.Preview(encodeToPNG(createRedImage(40, 30)))
	require.NoError(t, err)

	result, _, err := image.Decode(bytes.NewReader(preview))
	require.NoError(t, err)
	assert.Equal(t, 40, result.Bounds().Dx())
	assert.Equal(t, 30, result.Bounds().Dy())
}

// ========================================
// ТЕСТ: прозрачные области заменяются шахматным фоном
// ========================================
func TestIpr_Preview_TransparentOnChecker(t *testing.T) {
	ipr := newTestIpr()

	transparent := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	preview, err := ipr.Preview(encodeToPNG(transparent))
	require.NoError(t, err)

	result, _, err := image.Decode(bytes.NewReader(preview))
	require.NoError(t, err)
	assert.True(t, isGray(result.At(1, 1)))
	assert.True(t, isGray(result.At(9, 1)))
	assert.NotEqual(t, result.At(1, 1), result.At(9, 1), "neighbour cells differ")
}

func TestIpr_Preview_InvalidInput(t *testing.T) {
	ipr := newTestIpr()

	_, err := ipr.Preview([]byte("not an image"))
	assert.Error(t, err)
}

func TestNewIpr_DefaultPreviewSize(t *testing.T) {
	ipr := NewIpr(ImageParameters{}, slog.Default())
	assert.Equal(t, DefaultPreviewSize, ipr.imageParameters.PreviewSize)
}
