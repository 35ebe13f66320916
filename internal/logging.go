package internal

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the process logger. Text format goes through tint with
// colors when stderr is a terminal; JSON format uses the stock handler.
// A configured log file adds rotating file output alongside stderr.
func NewLogger(cfg ApplicationConfig) *slog.Logger {
	var out io.Writer = os.Stderr
	if cfg.Log.Path != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.Log.Path,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
		})
	}

	var handler slog.Handler
	if cfg.LogFormat == LogFormatJSON {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: cfg.LogLevel})
	} else {
		// Colors only when writing straight to a terminal.
		noColor := cfg.Log.Path != "" || !isatty.IsTerminal(os.Stderr.Fd())
		handler = tint.NewHandler(out, &tint.Options{
			Level:      cfg.LogLevel,
			TimeFormat: "15:04:05.000",
			NoColor:    noColor,
		})
	}
	return slog.New(handler)
}
