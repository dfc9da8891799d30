package mylogger

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler делегирует запись логов нескольким обработчикам
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler создает новый MultiHandler с заданными обработчиками
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

// Handle пишет запись в каждый обработчик, у которого включен уровень записи.
// Ошибка одного обработчика не мешает остальным.
func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.each(func(handler slog.Handler) slog.Handler { return handler.WithAttrs(attrs) })
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	return h.each(func(handler slog.Handler) slog.Handler { return handler.WithGroup(name) })
}

func (h *MultiHandler) each(fn func(slog.Handler) slog.Handler) *MultiHandler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = fn(handler)
	}
	return NewMultiHandler(newHandlers...)
}
