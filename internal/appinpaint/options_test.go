package appinpaint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeOptions(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "options.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadOptions_MissingFileGivesDefaults(t *testing.T) {
	t.Setenv(ENV_PORT, "")

	options, err := readOptions(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), options)
	assert.Equal(t, 120*time.Second, options.RequestTimeoutDuration())
	assert.Equal(t, 30*time.Minute, options.ResultTTLDuration())
	assert.Equal(t, int64(20<<20), options.MaxUploadBytes())
}

func TestReadOptions_FileOverridesDefaults(t *testing.T) {
	t.Setenv(ENV_PORT, "")
	path := writeOptions(t, `
log_level: DEBUG
log_file: ""
listen_port: "9000"
request_timeout: 300
model_checkpoint: sd_xl_base_1.0.safetensors
default_endpoint: http://gpu-box:7860
result_ttl: 5
preview_size: 128
`)

	options, err := readOptions(path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", options.LogLevel)
	assert.Equal(t, "", options.LogFile)
	assert.Equal(t, "9000", options.ListenPort)
	assert.Equal(t, 300*time.Second, options.RequestTimeoutDuration())
	assert.Equal(t, "sd_xl_base_1.0.safetensors", options.ModelCheckpoint)
	assert.Equal(t, "http://gpu-box:7860", options.FormDefaults().Endpoint)
	assert.Equal(t, "small leaves", options.FormDefaults().Prompt)
	assert.Equal(t, 128, options.PreviewSize)
	// Не заданные в файле значения остаются по умолчанию
	assert.Equal(t, 60, options.MetricsLogInterval)
}

func TestReadOptions_PortFromEnv(t *testing.T) {
	t.Setenv(ENV_PORT, "7000")
	path := writeOptions(t, "listen_port: \"9000\"\n")

	options, err := readOptions(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", options.ListenPort)
}

func TestReadOptions_Invalid(t *testing.T) {
	t.Setenv(ENV_PORT, "")

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad yaml", "log_level: [", "can not parse options file"},
		{"timeout", "request_timeout: 0", "request_timeout must be positive"},
		{"endpoint", "default_endpoint: ftp://host", "default_endpoint is not a http(s) url"},
		{"log level", "log_level: LOUD", "log_level must be one of"},
		{"tls", "tls_cert_file: /certs/cert.pem", "must be set together"},
		{"preview", "preview_size: 4", "preview_size must be at least 16"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readOptions(writeOptions(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestOptionsPath(t *testing.T) {
	t.Setenv(ENV_OPTIONS_PATH, "")
	assert.Equal(t, FILE_PATH_OPTIONS, optionsPath())

	t.Setenv(ENV_OPTIONS_PATH, "/tmp/custom.yml")
	assert.Equal(t, "/tmp/custom.yml", optionsPath())
}
