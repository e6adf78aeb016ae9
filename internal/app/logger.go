package app

import (
	"io"
	"log/slog"
	"strings"

	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/config"
)

// NewLogger builds the process logger from config. Unknown levels fall
// back to info.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
