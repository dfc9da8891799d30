package mylogger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
)

type Options struct {
	Level string
	// Файл логов с ротацией. Пустая строка: только консоль.
	FileName string
}

// ParseLevel уровни как в файле настроек: DEBUG, INFO, WARNING, ERROR
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARNING", "WARN":
		return slog.LevelWarn
	}
	return slog.LevelError
}

// NewLogger логгер с выводом на экран и, если задан файл, в файл с ротацией.
// Возвращаемый io.Closer закрывает файл логов.
func NewLogger(options Options, console io.Writer) (*slog.Logger, io.Closer) {
	if console == nil {
		console = os.Stdout
	}
	handlerOptions := &slog.HandlerOptions{Level: ParseLevel(options.Level), AddSource: true}

	// Настройка обработчика для вывода на экран
	handlers := []slog.Handler{slog.NewTextHandler(console, handlerOptions)}

	var closer io.Closer = nopCloser{}
	if options.FileName != "" {
		// Настройка обработчика для записи в файл с ротацией
		fileLogger := &lumberjack.Logger{
			Filename:   options.FileName,
			MaxSize:    100, // мегабайт
			MaxBackups: 3,
			MaxAge:     28, // дней
			Compress:   true,
		}
		handlers = append(handlers, slog.NewTextHandler(fileLogger, handlerOptions))
		closer = fileLogger
	}

	return slog.New(NewMultiHandler(handlers...)), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
