package app

import (
	"io"
	"os"
	"time"

	"github.com/de-tools/royalty-ledger/pkg/config"
	"github.com/rs/zerolog"
)

// NewLogger builds the process logger; console output is meant for people, json for collectors
func NewLogger(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
