package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogOptions struct {
	Debug   bool
	File    string
	Console io.Writer
	NoColor bool
}

// Logger is the printf-style logger shared by every package. Debug lines
// are dropped unless debug mode is on.
type Logger struct {
	Debug bool

	zl   zerolog.Logger
	file *lumberjack.Logger
}

func NewLogger(debug bool) *Logger {
	l, _ := NewLoggerWithOptions(LogOptions{Debug: debug})
	return l
}

func NewLoggerWithOptions(opts LogOptions) (*Logger, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.TimeOnly,
		NoColor:    opts.NoColor,
	}}

	var file *lumberjack.Logger
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}

		file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		writers = append(writers, file)
	}

	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{Debug: opts.Debug, zl: zl, file: file}, nil
}

// Close flushes the log file, if any.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	return l.file.Close()
}

func msg(format string, args []any) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}

func (l *Logger) Debugf(format string, args ...any) {
	if l == nil || !l.Debug {
		return
	}
	l.zl.Debug().Msg(msg(format, args))
}

func (l *Logger) Infof(format string, args ...any) {
	if l == nil {
		return
	}
	l.zl.Info().Msg(msg(format, args))
}

func (l *Logger) Warnf(format string, args ...any) {
	if l == nil {
		return
	}
	l.zl.Warn().Msg(msg(format, args))
}

func (l *Logger) Errorf(format string, args ...any) {
	if l == nil {
		return
	}
	l.zl.Error().Msg(msg(format, args))
}
