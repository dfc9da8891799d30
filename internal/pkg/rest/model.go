package rest

import (
	"inpaintui/internal/pkg/collector"
	"inpaintui/internal/pkg/opermanager"
)

// FormPage данные для страницы формы и результата
type FormPage struct {
	Form   collector.FormState
	Result *ResultView
}

// ResultView успешный результат для показа под формой
type ResultView struct {
	Id         string
	ImageURL   string
	InitURL    string
	MaskURL    string
	Format     string
	Width      int
	Height     int
	ElapsedSec float64
}

type KindCount struct {
	Kind  string
	Count int64
}

// StatusResponse структура для отображения статуса
type StatusResponse struct {
	State          opermanager.Status `json:"state"`
	PendingSeconds float64            `json:"pending_seconds"`
	Uptime         string             `json:"uptime"`
	StoredResults  int                `json:"stored_results"`

	TotalRequests            int64   `json:"total_requests"`
	TotalRequestsError       int64   `json:"total_requests_errors"`
	TotalRequestsSuccessRate float64 `json:"total_requests_success_rate"`
	TotalRequestsErrorRate   float64 `json:"total_requests_errors_rate"`

	RunsTotal       int64   `json:"runs_total"`
	RunsError       int64   `json:"runs_error"`
	RunsSuccessRate float64 `json:"runs_success_rate"`
	RunsErrorRate   float64 `json:"runs_error_rate"`

	ErrorsByKind []KindCount `json:"errors_by_kind"`

	BackendLatencyMeanSec float64 `json:"backend_latency_mean_sec"`
	BackendLatencyMaxSec  float64 `json:"backend_latency_max_sec"`
}

// Error структура для ошибок
type ErrorAttributes struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	DevMessage string `json:"dev_message,omitempty"`
}

// ErrorResponse структура для исходящего ответа
type ErrorResponse struct {
	Error ErrorAttributes `json:"error,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
