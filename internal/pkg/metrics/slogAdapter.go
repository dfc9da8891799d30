package metrics

import (
	"fmt"
	"github.com/rcrowley/go-metrics"
	"log/slog"
	"strings"
)

type SlogAdapter struct {
	logger *slog.Logger
	prefix string
}

func NewSlogAdapter(logger *slog.Logger, prefix string) *SlogAdapter {
	return &SlogAdapter{
		logger: logger,
		prefix: prefix,
	}
}

func (a *SlogAdapter) Write(p []byte) (n int, err error) {
	// Логируем каждую строку как отдельное сообщение
	for _, line := range strings.Split(string(p), "\n") {
		if strings.TrimSpace(line) != "" {
			a.logger.Info(fmt.Sprintf("%s%s", a.prefix, line))
		}
	}

	return len(p), nil
}

// LogOnce выводит текущие значения всех метрик в лог. Вызывается планировщиком.
func (m *AppMetrics) LogOnce(logger *slog.Logger) {
	logger.Info("metrics snapshot", "uptime", m.Uptime().String())
	metrics.WriteOnce(m.registry, NewSlogAdapter(logger, "metrics: "))
}
