package sdapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"inpaintui/internal/pkg/generation"
	"inpaintui/internal/pkg/imageprocessor"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	Img2ImgPath            = "/sdapi/v1/img2img"
	DefaultModelCheckpoint = "v1-5-pruned-emaonly.safetensors"
	DefaultTimeout         = 120 * time.Second

	// inpaintingFillLatentNoise заполнение маски латентным шумом
	inpaintingFillLatentNoise = 2
	errorBodyLimit            = 1024
)

type Options struct {
	Timeout         time.Duration
	ModelCheckpoint string
	HTTPClient      *http.Client
}

// Client адаптер запроса img2img к Stable Diffusion WebUI API
type Client struct {
	httpClient      *http.Client
	logger          *slog.Logger
	timeout         time.Duration
	modelCheckpoint string
}

func NewClient(options Options, logger *slog.Logger) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	checkpoint := strings.TrimSpace(options.ModelCheckpoint)
	if checkpoint == "" {
		checkpoint = DefaultModelCheckpoint
	}

	return &Client{
		httpClient:      httpClient,
		logger:          logger,
		timeout:         timeout,
		modelCheckpoint: checkpoint,
	}
}

func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// NewPayload собирает тело запроса. Все поля кроме пользовательских параметров фиксированы.
func NewPayload(req generation.Request, modelCheckpoint string) Img2ImgPayload {
	return Img2ImgPayload{
		InitImages:           []string{base64.StdEncoding.EncodeToString(req.InitImage)},
		Mask:                 base64.StdEncoding.EncodeToString(req.MaskImage),
		Prompt:               req.Prompt,
		NegativePrompt:       "",
		Styles:               []string{},
		Seed:                 -1,
		Subseed:              -1,
		SubseedStrength:      0,
		BatchSize:            1,
		NIter:                1,
		Steps:                req.Steps,
		CfgScale:             req.CfgScale,
		Width:                req.Width,
		Height:               req.Height,
		RestoreFaces:         false,
		Tiling:               false,
		DenoisingStrength:    req.DenoisingStrength,
		MaskBlur:             req.MaskBlur,
		InpaintingFill:       inpaintingFillLatentNoise,
		InpaintFullRes:       true,
		InpaintingMaskInvert: lo.Ternary(req.InvertMask, 1, 0),
		OverrideSettings:     OverrideSettings{SdModelCheckpoint: modelCheckpoint},
		ScriptName:           "",
		SendImages:           true,
		SaveImages:           false,
	}
}

// Img2Img выполняет один синхронный запрос inpainting. Повторов нет.
func (c *Client) Img2Img(ctx context.Context, req generation.Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	endpoint := strings.TrimRight(strings.TrimSpace(req.Endpoint), "/") + Img2ImgPath

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload := NewPayload(req, c.modelCheckpoint)
	var response img2imgResponse
	err := c.innerRequest(ctx, endpoint, payload, &response)
	if err != nil {
		return nil, err
	}

	if response.Images == nil {
		c.logger.Error("Backend response has no images field", "url", endpoint)
		return nil, generation.ProtocolError("backend response does not contain images", nil)
	}
	if len(response.Images) == 0 {
		c.logger.Error("Backend response has empty images list", "url", endpoint)
		return nil, generation.ProtocolError("backend returned no images", nil)
	}

	data, err := decodeBase64Image(response.Images[0])
	if err != nil {
		c.logger.Error("Error when decode Base64", "error", err)
		return nil, generation.DecodeError("returned image is not valid base64", err)
	}

	img, format, err := imageprocessor.DecodeImage(data)
	if err != nil {
		c.logger.Error("Error when decode image", "error", err)
		return nil, generation.DecodeError("returned image can not be decoded", err)
	}

	elapsed := time.Since(start)
	c.logger.Info("Img2img completed", "format", format, "bounds", img.Bounds().String(), "elapsed", elapsed)

	return &Result{
		Image:   img,
		Format:  format,
		Data:    data,
		Info:    response.Info,
		Elapsed: elapsed,
	}, nil
}

func (c *Client) innerRequest(ctx context.Context, endpoint string, requestBody interface{}, result interface{}) error {
	c.logger.Debug("Execute post request", "url", endpoint)

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		c.logger.Error("Error when data marshaling", "error", err)
		return generation.TransportError("can not encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		c.logger.Error("Error when create request", "error", err)
		return generation.TransportError("can not create request to "+endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Error when execute request", "url", endpoint, "error", err)
		if isTimeout(err) {
			return generation.TransportError(fmt.Sprintf("backend did not respond within %s", c.timeout), err)
		}
		return generation.TransportError("backend is unreachable", err)
	}
	defer resp.Body.Close()

	// Тело ответа с ошибкой не разбираем, только пишем в лог
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logBody(resp)
		return generation.TransportError(fmt.Sprintf("backend returned status %s", resp.Status), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("Error when read body", "error", err)
		return generation.TransportError("can not read backend response", err)
	}

	if err := json.Unmarshal(body, result); err != nil {
		c.logger.Error("Error when parse body", "error", err)
		return generation.ProtocolError("backend response is not valid JSON", err)
	}
	c.logger.Debug("Get result", "bytes", len(body))
	return nil
}

func (c *Client) logBody(resp *http.Response) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	if err != nil {
		c.logger.Error("Error when read error body", "error", err)
		return
	}
	c.logger.Error("Unexpected status code", "status", resp.Status, "body", string(body))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}

// decodeBase64Image допускает префикс data URL
func decodeBase64Image(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		if idx := strings.Index(encoded, ","); idx >= 0 {
			encoded = encoded[idx+1:]
		}
	}
	if encoded == "" {
		return nil, fmt.Errorf("image string is empty")
	}
	return base64.StdEncoding.DecodeString(encoded)
}
