package logger

import (
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a structured logger. Values derived with With or WithFields share
// the parent's output.
type Logger struct {
	logger zerolog.Logger
}

// Config contains logger configuration
type Config struct {
	Level      string
	Format     string // json or console
	OutputPath string // stdout, stderr or a file path

	// Writer overrides OutputPath when set
	Writer io.Writer
}

// New creates a logger. An unknown level falls back to info and an output
// file that cannot be opened falls back to stdout.
func New(cfg Config) *Logger {
	output := openOutput(cfg)
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	return &Logger{
		logger: zerolog.New(output).
			Level(parseLevel(cfg.Level)).
			With().
			Timestamp().
			Caller().
			Logger(),
	}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

func openOutput(cfg Config) io.Writer {
	if cfg.Writer != nil {
		return cfg.Writer
	}
	switch cfg.OutputPath {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	}
	f, err := os.OpenFile(cfg.OutputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return os.Stdout
	}
	return f
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) Debug(msg string) { l.logger.Debug().Msg(msg) }

func (l *Logger) Info(msg string) { l.logger.Info().Msg(msg) }

func (l *Logger) Warn(msg string) { l.logger.Warn().Msg(msg) }

func (l *Logger) Error(msg string) { l.logger.Error().Msg(msg) }

// Fatal logs and exits the process
func (l *Logger) Fatal(msg string) { l.logger.Fatal().Msg(msg) }

// WarnWithErr logs msg at warn level with err attached
func (l *Logger) WarnWithErr(err error, msg string) {
	l.logger.Warn().Err(err).Msg(msg)
}

// ErrorWithErr logs msg at error level with err attached
func (l *Logger) ErrorWithErr(err error, msg string) {
	l.logger.Error().Err(err).Msg(msg)
}

// FatalWithErr logs msg with err attached and exits the process
func (l *Logger) FatalWithErr(err error, msg string) {
	l.logger.Fatal().Err(err).Msg(msg)
}

// With returns a logger with an additional field
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// WithFields returns a logger with multiple fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{logger: ctx.Logger()}
}

// Std returns a standard library logger that writes error level entries,
// for packages such as net/http that only accept *log.Logger.
func (l *Logger) Std(component string) *stdlog.Logger {
	zl := l.logger.With().Str("component", component).Logger().Level(zerolog.ErrorLevel)
	return stdlog.New(stdWriter{logger: zl}, "", 0)
}

type stdWriter struct {
	logger zerolog.Logger
}

func (w stdWriter) Write(p []byte) (int, error) {
	w.logger.Error().Msg(strings.TrimSpace(string(p)))
	return len(p), nil
}
