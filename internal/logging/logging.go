package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/config"
)

// New builds a logger from cfg. stdout is used for the "stdout" output (and
// when Output is empty); "stderr" writes to os.Stderr; anything else is a
// file path opened for appending. The returned close function releases the
// file, if one was opened.
func New(cfg config.LoggingConfig, stdout io.Writer) (zerolog.Logger, func() error, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q", cfg.Level)
	}

	closeFn := func() error { return nil }
	var out io.Writer
	switch cfg.Output {
	case "", "stdout":
		out = stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = f.Close
	}

	switch cfg.Format {
	case "", "console":
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.TimeOnly,
			NoColor:    !isTerminal(out),
		}
	case "json":
	default:
		closeFn()
		return zerolog.Nop(), nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger, closeFn, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
