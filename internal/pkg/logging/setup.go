package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sbconlon/mlb-scraper/internal/pkg/config"
)

// SetupLogger installs the global logger: text on stdout plus a daily log
// file under cfg.Dir. If the log directory cannot be used, logging continues
// on stdout only and the error is returned.
func SetupLogger(cfg *config.LoggingConfig, serviceName string) (*slog.Logger, error) {
	level := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	handlers := []slog.Handler{slog.NewTextHandler(os.Stdout, opts)}

	var fileErr error
	if cfg.Dir != "" {
		w, err := NewDailyWriter(cfg.Dir)
		if err != nil {
			fileErr = fmt.Errorf("failed to open log directory: %w", err)
		} else {
			handlers = append(handlers, slog.NewTextHandler(w, opts))
		}
	}

	logger := New(serviceName, handlers...)
	slog.SetDefault(logger)
	return logger, fileErr
}

// New builds a logger fanning out to handlers, tagged with the service name.
func New(serviceName string, handlers ...slog.Handler) *slog.Logger {
	return slog.New(&MultiHandler{handlers: handlers}).With("service", serviceName)
}

// ParseLevel maps DEBUG/INFO/WARN/ERROR to a slog level. Unknown values mean INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MultiHandler sends every record to several handlers.
type MultiHandler struct {
	handlers []slog.Handler
}

func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *MultiHandler) Handle(ctx context.Context, record slog.Record) error {
	var lastErr error
	for _, h := range m.handlers {
		if h.Enabled(ctx, record.Level) {
			if err := h.Handle(ctx, record.Clone()); err != nil {
				lastErr = err
			}
		}
	}
	return lastErr
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: handlers}
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &MultiHandler{handlers: handlers}
}
