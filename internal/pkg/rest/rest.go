package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"inpaintui/internal/pkg/collector"
	"inpaintui/internal/pkg/generation"
	"inpaintui/internal/pkg/metrics"
	"inpaintui/internal/pkg/opermanager"
	"inpaintui/internal/pkg/utils"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
)

const (
	METRIC_ALL_WEB      = "WEB_ALL"
	METRIC_FORM_RUN     = "FORM_RUN"
	METRIC_API_RUN      = "API_RUN"
	METRIC_IMAGE_GET    = "IMAGE_GET"
	METRIC_PREVIEW_GET  = "PREVIEW_GET"
	METRIC_STATUS_PAGE  = "STATUS_PAGE"
	DefaultPort         = "8099"
	serverExtraDeadline = 30 * time.Second
)

type Options struct {
	Port           string
	Defaults       generation.Request
	MaxUploadBytes int64
	// Время ответа бэкенда, от него считаются таймауты сервера
	RequestTimeout time.Duration
	CertFile       string
	KeyFile        string
}

type Rest struct {
	logger   *slog.Logger
	router   *mux.Router
	server   *http.Server
	operMng  *opermanager.OperMngr
	metrics  *metrics.AppMetrics
	options  Options
	formPage *template.Template
	status   *template.Template
}

func NewRest(options Options,
	logger *slog.Logger,
	operMng *opermanager.OperMngr,
	metrics *metrics.AppMetrics,
) (*Rest, error) {
	if options.Port == "" {
		options.Port = DefaultPort
	}
	if options.MaxUploadBytes <= 0 {
		options.MaxUploadBytes = collector.DefaultMaxUploadBytes
	}

	formPage, err := template.New("form").Parse(formTemplate)
	if err != nil {
		return nil, fmt.Errorf("error parsing form template: %w", err)
	}
	status, err := template.New("status").Parse(statusTemplate)
	if err != nil {
		return nil, fmt.Errorf("error parsing status template: %w", err)
	}

	router := mux.NewRouter()

	restObj := Rest{
		router:   router,
		logger:   logger,
		operMng:  operMng,
		metrics:  metrics,
		options:  options,
		formPage: formPage,
		status:   status,
	}

	router.Use(middleware.RequestID, middleware.RealIP, restObj.logRequest, middleware.Recoverer)

	router.HandleFunc("/", restObj.handleIndex).Methods("GET")
	router.HandleFunc("/run", restObj.handleRun).Methods("POST")
	router.HandleFunc("/result/{operationId}", restObj.handleGetImage).Methods("GET")
	router.HandleFunc("/result/{operationId}/preview/{kind}", restObj.handleGetPreview).Methods("GET")
	router.HandleFunc("/api/v1/img2img", restObj.handleApiRun).Methods("POST")
	router.HandleFunc("/status", restObj.handleStatus).Methods("GET")
	router.HandleFunc("/healthz", restObj.handleHealth).Methods("GET")

	// Запись ответа ждёт бэкенд, поэтому таймаут больше таймаута запроса
	restObj.server = &http.Server{
		Addr:              ":" + options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       serverExtraDeadline + time.Minute,
		WriteTimeout:      options.RequestTimeout + serverExtraDeadline,
		IdleTimeout:       2 * time.Minute,
	}

	return &restObj, nil
}

func (rest *Rest) Handler() http.Handler {
	return rest.router
}

func (rest *Rest) handleIndex(w http.ResponseWriter, r *http.Request) {
	rest.renderForm(w, http.StatusOK, FormPage{Form: collector.NewFormState(rest.options.Defaults)})
}

// Функция для обработки POST-запросов формы
func (rest *Rest) handleRun(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rest.options.MaxUploadBytes)

	req, state, err := collector.Parse(r, rest.options.Defaults, rest.options.MaxUploadBytes)
	if err != nil {
		rest.operMng.CountRejected(err)
		state.Error = generation.UserMessage(err)
		rest.renderForm(w, statusCodeFor(err), FormPage{Form: state})
		rest.incrRequestMetric(METRIC_FORM_RUN, true)
		return
	}

	operation, err := rest.operMng.Run(r.Context(), req)
	if err != nil {
		state.Error = generation.UserMessage(err)
		rest.renderForm(w, statusCodeFor(err), FormPage{Form: state})
		rest.incrRequestMetric(METRIC_FORM_RUN, true)
		return
	}

	rest.renderForm(w, http.StatusOK, FormPage{Form: state, Result: newResultView(operation)})
	rest.incrRequestMetric(METRIC_FORM_RUN, false)
}

// Тот же запуск, но ответ изображением или JSON ошибкой
func (rest *Rest) handleApiRun(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rest.options.MaxUploadBytes)

	req, _, err := collector.Parse(r, rest.options.Defaults, rest.options.MaxUploadBytes)
	if err != nil {
		rest.operMng.CountRejected(err)
	} else {
		var operation *opermanager.Operation
		operation, err = rest.operMng.Run(r.Context(), req)
		if err == nil {
			w.Header().Set("X-Operation-Id", operation.Id)
			w.Header().Set("X-Elapsed-Seconds", strconv.FormatFloat(utils.Seconds(operation.Elapsed), 'f', -1, 64))
			rest.sendImage(w, operation.ContentType, operation.Data())
			rest.incrRequestMetric(METRIC_API_RUN, false)
			return
		}
	}

	errorAttrs := ErrorAttributes{
		Code:    errorCode(err),
		Message: generation.UserMessage(err),
	}
	var genErr *generation.Error
	if errors.As(err, &genErr) && genErr.Err != nil {
		errorAttrs.DevMessage = genErr.Err.Error()
	}
	sendJSONResponse(w, statusCodeFor(err), ErrorResponse{errorAttrs})
	rest.logger.Error(errorAttrs.Message, slog.String("code", errorAttrs.Code), slog.String("error", errorAttrs.DevMessage))
	rest.incrRequestMetric(METRIC_API_RUN, true)
}

func (rest *Rest) handleGetImage(w http.ResponseWriter, r *http.Request) {
	operationId := mux.Vars(r)["operationId"]
	rest.logger.Debug("Handling GET image", "operationId", operationId)

	operation, err := rest.operMng.GetOperation(operationId)
	if err != nil {
		rest.sendNotFound(w, err)
		rest.incrRequestMetric(METRIC_IMAGE_GET, true)
		return
	}

	rest.sendImage(w, operation.ContentType, operation.Data())
	rest.incrRequestMetric(METRIC_IMAGE_GET, false)
}

func (rest *Rest) handleGetPreview(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	operationId := vars["operationId"]

	kind, err := opermanager.ParsePreviewKind(vars["kind"])
	if err != nil {
		errorAttrs := ErrorAttributes{Code: "BadRequest", Message: "unknown preview kind", DevMessage: err.Error()}
		sendJSONResponse(w, http.StatusBadRequest, ErrorResponse{errorAttrs})
		rest.incrRequestMetric(METRIC_PREVIEW_GET, true)
		return
	}

	preview, err := rest.operMng.GetPreview(operationId, kind)
	if err != nil {
		rest.sendNotFound(w, err)
		rest.incrRequestMetric(METRIC_PREVIEW_GET, true)
		return
	}

	rest.sendImage(w, "image/png", preview)
	rest.incrRequestMetric(METRIC_PREVIEW_GET, false)
}

func (rest *Rest) handleStatus(w http.ResponseWriter, r *http.Request) {
	err := rest.status.Execute(w, rest.collectStatus())
	if err != nil {
		rest.logger.Error("Error executing template", "error", err)
		http.Error(w, "Error executing template", http.StatusInternalServerError)
		return
	}
	rest.incrRequestMetric(METRIC_STATUS_PAGE, false)
}

func (rest *Rest) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSONResponse(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (rest *Rest) collectStatus() StatusResponse {
	state, since := rest.operMng.State()
	allWeb := rest.metrics.GetRequestTypeMetricsSafe(METRIC_ALL_WEB)
	runs := rest.metrics.GetRequestTypeMetricsSafe(opermanager.METRIC_RUN)
	latency := rest.metrics.GetTimerSafe(opermanager.METRIC_BACKEND_LATENCY).Snapshot()

	response := StatusResponse{
		State:         state,
		Uptime:        rest.metrics.Uptime().String(),
		StoredResults: rest.operMng.ResultCount(),

		TotalRequests:            allWeb.Total.Count(),
		TotalRequestsError:       allWeb.Errors.Count(),
		TotalRequestsSuccessRate: utils.PerHour(allWeb.SuccessRate.Rate15()),
		TotalRequestsErrorRate:   utils.PerHour(allWeb.ErrorRate.Rate15()),

		RunsTotal:       runs.Total.Count(),
		RunsError:       runs.Errors.Count(),
		RunsSuccessRate: utils.PerHour(runs.SuccessRate.Rate15()),
		RunsErrorRate:   utils.PerHour(runs.ErrorRate.Rate15()),

		BackendLatencyMeanSec: utils.Seconds(time.Duration(latency.Mean())),
		BackendLatencyMaxSec:  utils.Seconds(time.Duration(latency.Max())),
	}
	if state == opermanager.StatusPending {
		response.PendingSeconds = utils.Seconds(time.Since(since))
	}

	for name, metric := range rest.metrics.RequestTypesSnapshot() {
		kind, ok := strings.CutPrefix(name, opermanager.METRIC_TEMPLATE_RUN_ERROR)
		if !ok {
			continue
		}
		response.ErrorsByKind = append(response.ErrorsByKind, KindCount{Kind: kind, Count: metric.Errors.Count()})
	}
	sort.Slice(response.ErrorsByKind, func(i, j int) bool {
		return response.ErrorsByKind[i].Kind < response.ErrorsByKind[j].Kind
	})

	return response
}

func (rest *Rest) renderForm(w http.ResponseWriter, statusCode int, page FormPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := rest.formPage.Execute(w, page); err != nil {
		rest.logger.Error("Error executing template", "error", err)
	}
}

func (rest *Rest) sendImage(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		rest.logger.Warn("Error write image", "error", err)
	}
}

func (rest *Rest) sendNotFound(w http.ResponseWriter, err error) {
	errorAttrs := ErrorAttributes{Code: "NotFound", Message: "result not found or expired", DevMessage: err.Error()}
	sendJSONResponse(w, http.StatusNotFound, ErrorResponse{errorAttrs})
	rest.logger.Warn(errorAttrs.Message, slog.String("error", errorAttrs.DevMessage))
}

func newResultView(operation *opermanager.Operation) *ResultView {
	base := "/result/" + operation.Id
	return &ResultView{
		Id:         operation.Id,
		ImageURL:   base,
		InitURL:    base + "/preview/" + string(opermanager.PreviewInit),
		MaskURL:    base + "/preview/" + string(opermanager.PreviewMask),
		Format:     operation.Format,
		Width:      operation.Width,
		Height:     operation.Height,
		ElapsedSec: utils.Seconds(operation.Elapsed),
	}
}

func statusCodeFor(err error) int {
	switch generation.KindOf(err) {
	case generation.KindValidation:
		return http.StatusUnprocessableEntity
	case generation.KindBusy:
		return http.StatusConflict
	case generation.KindTransport, generation.KindProtocol, generation.KindDecode:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func errorCode(err error) string {
	switch generation.KindOf(err) {
	case generation.KindValidation:
		return "ValidationError"
	case generation.KindBusy:
		return "Busy"
	case generation.KindTransport:
		return "TransportError"
	case generation.KindProtocol:
		return "ProtocolError"
	case generation.KindDecode:
		return "DecodeError"
	}
	return "InternalError"
}

// Универсальная функция для отправки JSON-ответов
func sendJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	if data == nil {
		w.WriteHeader(statusCode)
		return
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		// Если не удалось закодировать данные в JSON, отправляем ошибку 500
		http.Error(w, "Error encoding JSON", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(jsonData)
}

// logRequest пишет в лог каждый запрос с его request id
func (rest *Rest) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		rest.logger.Debug("Request served",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start))
	})
}

// Start блокируется до остановки сервера. TLS включается, если заданы оба файла.
func (rest *Rest) Start() error {
	rest.logger.Error("(It is not error!!!) Run WEB-Server", "port", rest.options.Port,
		"tls", rest.options.CertFile != "" && rest.options.KeyFile != "")

	var err error
	if rest.options.CertFile != "" && rest.options.KeyFile != "" {
		if _, statErr := os.Stat(rest.options.CertFile); os.IsNotExist(statErr) {
			return fmt.Errorf("certificate not found: %s", rest.options.CertFile)
		}
		if _, statErr := os.Stat(rest.options.KeyFile); os.IsNotExist(statErr) {
			return fmt.Errorf("key not found: %s", rest.options.KeyFile)
		}
		err = rest.server.ListenAndServeTLS(rest.options.CertFile, rest.options.KeyFile)
	} else {
		err = rest.server.ListenAndServe()
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (rest *Rest) Shutdown(ctx context.Context) error {
	return rest.server.Shutdown(ctx)
}

func (rest *Rest) incrRequestMetric(metricType string, isError bool) {
	if isError {
		rest.metrics.IncrementErrorRequest(METRIC_ALL_WEB)
		rest.metrics.IncrementErrorRequest(metricType)
	} else {
		rest.metrics.IncrementSuccessRequest(METRIC_ALL_WEB)
		rest.metrics.IncrementSuccessRequest(metricType)
	}
}
