package metrics

import (
	"fmt"
	"github.com/rcrowley/go-metrics"
	"sync"
	"time"
)

// Структура для всех метрик приложения
type AppMetrics struct {
	// Время старта приложения
	StartTime time.Time

	// Карта метрик по типам запросов
	RequestTypes map[string]*RequestTypeMetrics

	// Таймеры длительности по имени
	Timers map[string]metrics.Timer

	registry metrics.Registry

	// Мьютекс для безопасной работы с map
	mu sync.RWMutex
}

type RequestTypeMetrics struct {
	Total       metrics.Counter // Общее количество запросов
	Success     metrics.Counter // Успешные запросы
	Errors      metrics.Counter // Ошибки
	TotalRate   metrics.Meter   // Частота запросов/сек
	ErrorRate   metrics.Meter   // Частота ошибок/сек
	SuccessRate metrics.Meter   // Частота успешных/сек
}

func (metric *RequestTypeMetrics) IncrementSuccessRequest() {
	metric.incrementRequest(false)
}
func (metric *RequestTypeMetrics) IncrementErrorRequest() {
	metric.incrementRequest(true)
}

func (metric *RequestTypeMetrics) incrementRequest(isError bool) {
	metric.Total.Inc(1)
	metric.TotalRate.Mark(1)
	if isError {
		metric.Errors.Inc(1)
		metric.ErrorRate.Mark(1)

	} else {
		metric.Success.Inc(1)
		metric.SuccessRate.Mark(1)
	}
}

// Конструктор для создания метрик
func NewAppMetrics() *AppMetrics {
	return &AppMetrics{
		RequestTypes: make(map[string]*RequestTypeMetrics),
		Timers:       make(map[string]metrics.Timer),
		registry:     metrics.NewRegistry(),
		// Устанавливаем время старта
		StartTime: time.Now(),
	}
}

func (m *AppMetrics) Registry() metrics.Registry {
	return m.registry
}

func (m *AppMetrics) GetRequestTypeMetricsSafe(requestType string) *RequestTypeMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.RequestTypes[requestType]; ok {
		return existing
	}

	// Регистрируем с уникальными именами
	typeName := fmt.Sprintf("app.requests.%s", requestType)
	metric := &RequestTypeMetrics{
		Total:       metrics.GetOrRegisterCounter(typeName+".total", m.registry),
		Success:     metrics.GetOrRegisterCounter(typeName+".success", m.registry),
		Errors:      metrics.GetOrRegisterCounter(typeName+".errors", m.registry),
		TotalRate:   metrics.GetOrRegisterMeter(typeName+".total_rate", m.registry),
		ErrorRate:   metrics.GetOrRegisterMeter(typeName+".error_rate", m.registry),
		SuccessRate: metrics.GetOrRegisterMeter(typeName+".success_rate", m.registry),
	}

	m.RequestTypes[requestType] = metric
	return metric
}

func (m *AppMetrics) IncrementSuccessRequest(requestType string) {
	metric := m.GetRequestTypeMetricsSafe(requestType)
	metric.IncrementSuccessRequest()
}
func (m *AppMetrics) IncrementErrorRequest(requestType string) {
	metric := m.GetRequestTypeMetricsSafe(requestType)
	metric.IncrementErrorRequest()
}

func (m *AppMetrics) GetTimerSafe(name string) metrics.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.Timers[name]; ok {
		return existing
	}

	timer := metrics.GetOrRegisterTimer(fmt.Sprintf("app.timers.%s", name), m.registry)
	m.Timers[name] = timer
	return timer
}

// UpdateTimer фиксирует длительность операции
func (m *AppMetrics) UpdateTimer(name string, d time.Duration) {
	m.GetTimerSafe(name).Update(d)
}

func (m *AppMetrics) Uptime() time.Duration {
	return time.Since(m.StartTime).Truncate(time.Second)
}

// RequestTypesSnapshot копия карты метрик, безопасна для обхода
func (m *AppMetrics) RequestTypesSnapshot() map[string]*RequestTypeMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]*RequestTypeMetrics, len(m.RequestTypes))
	for name, metric := range m.RequestTypes {
		out[name] = metric
	}
	return out
}
