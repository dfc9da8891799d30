package sdapi

import (
	"image"
	"time"
)

// Img2ImgPayload тело запроса POST /sdapi/v1/img2img
type Img2ImgPayload struct {
	InitImages           []string         `json:"init_images"`
	Mask                 string           `json:"mask"`
	Prompt               string           `json:"prompt"`
	NegativePrompt       string           `json:"negative_prompt"`
	Styles               []string         `json:"styles"`
	Seed                 int              `json:"seed"`
	Subseed              int              `json:"subseed"`
	SubseedStrength      float64          `json:"subseed_strength"`
	BatchSize            int              `json:"batch_size"`
	NIter                int              `json:"n_iter"`
	Steps                int              `json:"steps"`
	CfgScale             float64          `json:"cfg_scale"`
	Width                int              `json:"width"`
	Height               int              `json:"height"`
	RestoreFaces         bool             `json:"restore_faces"`
	Tiling               bool             `json:"tiling"`
	DenoisingStrength    float64          `json:"denoising_strength"`
	MaskBlur             int              `json:"mask_blur"`
	InpaintingFill       int              `json:"inpainting_fill"`
	InpaintFullRes       bool             `json:"inpaint_full_res"`
	InpaintingMaskInvert int              `json:"inpainting_mask_invert"`
	OverrideSettings     OverrideSettings `json:"override_settings"`
	ScriptName           string           `json:"script_name"`
	SendImages           bool             `json:"send_images"`
	SaveImages           bool             `json:"save_images"`
}

type OverrideSettings struct {
	SdModelCheckpoint string `json:"sd_model_checkpoint"`
}

// img2imgResponse ответ бэкенда. Images == nil, если поле отсутствует или null.
type img2imgResponse struct {
	Images     []string       `json:"images"`
	Parameters map[string]any `json:"parameters"`
	Info       string         `json:"info"`
}

// Result декодированное изображение, полученное от бэкенда
type Result struct {
	Image   image.Image
	Format  string
	Data    []byte
	Info    string
	Elapsed time.Duration
}
