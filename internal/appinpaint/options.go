package appinpaint

import (
	"errors"
	"fmt"
	"inpaintui/internal/pkg/generation"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

const (
	FILE_PATH_OPTIONS = "/data/options.yml"
	ENV_OPTIONS_PATH  = "INPAINT_OPTIONS"
	ENV_PORT          = "PORT"
)

var logLevels = []string{"DEBUG", "INFO", "WARNING", "WARN", "ERROR"}

type ApplOptions struct {
	LogLevel string `yaml:"log_level"`
	// Пустое значение отключает запись в файл
	LogFile            string `yaml:"log_file"`
	ListenPort         string `yaml:"listen_port"`
	RequestTimeout     int    `yaml:"request_timeout"`
	ModelCheckpoint    string `yaml:"model_checkpoint"`
	DefaultEndpoint    string `yaml:"default_endpoint"`
	ResultTTL          int    `yaml:"result_ttl"`
	MetricsLogInterval int    `yaml:"metrics_log_interval"`
	PreviewSize        int    `yaml:"preview_size"`
	MaxUploadMB        int    `yaml:"max_upload_mb"`
	TLSCertFile        string `yaml:"tls_cert_file"`
	TLSKeyFile         string `yaml:"tls_key_file"`
}

func defaultConfig() ApplOptions {
	return ApplOptions{
		LogLevel:           "INFO",
		LogFile:            "/log/app.log",
		ListenPort:         "8099",
		RequestTimeout:     120,
		ModelCheckpoint:    "v1-5-pruned-emaonly.safetensors",
		DefaultEndpoint:    generation.DefaultEndpoint,
		ResultTTL:          30,
		MetricsLogInterval: 60,
		PreviewSize:        256,
		MaxUploadMB:        20,
	}
}

func (o ApplOptions) RequestTimeoutDuration() time.Duration {
	return time.Duration(o.RequestTimeout) * time.Second
}

func (o ApplOptions) ResultTTLDuration() time.Duration {
	return time.Duration(o.ResultTTL) * time.Minute
}

func (o ApplOptions) MetricsLogDuration() time.Duration {
	return time.Duration(o.MetricsLogInterval) * time.Minute
}

func (o ApplOptions) MaxUploadBytes() int64 {
	return int64(o.MaxUploadMB) << 20
}

// FormDefaults значения формы с адресом бэкенда из настроек
func (o ApplOptions) FormDefaults() generation.Request {
	req := generation.Defaults()
	req.Endpoint = o.DefaultEndpoint
	return req
}

func (o ApplOptions) Validate() error {
	var errs []error

	if !lo.Contains(logLevels, strings.ToUpper(o.LogLevel)) {
		errs = append(errs, fmt.Errorf("option log_level must be one of %v", logLevels))
	}
	if o.ListenPort == "" {
		errs = append(errs, errors.New("option listen_port must be set"))
	}
	if o.RequestTimeout <= 0 {
		errs = append(errs, errors.New("option request_timeout must be positive"))
	}
	if o.ResultTTL <= 0 {
		errs = append(errs, errors.New("option result_ttl must be positive"))
	}
	if o.MetricsLogInterval <= 0 {
		errs = append(errs, errors.New("option metrics_log_interval must be positive"))
	}
	if o.PreviewSize < 16 {
		errs = append(errs, errors.New("option preview_size must be at least 16"))
	}
	if o.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("option max_upload_mb must be positive"))
	}
	if u, err := url.Parse(o.DefaultEndpoint); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("option default_endpoint is not a http(s) url: %q", o.DefaultEndpoint))
	}
	if (o.TLSCertFile == "") != (o.TLSKeyFile == "") {
		errs = append(errs, errors.New("options tls_cert_file and tls_key_file must be set together"))
	}

	return errors.Join(errs...)
}

func optionsPath() string {
	if path := os.Getenv(ENV_OPTIONS_PATH); path != "" {
		return path
	}
	return FILE_PATH_OPTIONS
}

// readOptions читает YAML поверх значений по умолчанию. Отсутствующий файл не ошибка.
func readOptions(path string) (ApplOptions, error) {
	data := defaultConfig()

	plan, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return data, fmt.Errorf("can not read options file %s: %w", path, err)
	}
	if err == nil {
		if err := yaml.Unmarshal(plan, &data); err != nil {
			return data, fmt.Errorf("can not parse options file %s: %w", path, err)
		}
	}

	if port := os.Getenv(ENV_PORT); port != "" {
		data.ListenPort = port
	}

	return data, data.Validate()
}
