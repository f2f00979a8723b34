package log

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// logger is a no-op until Init is called, so packages that grab it in
// constructors (and their tests) never write to a nil writer.
var logger = zerolog.Nop()
var once sync.Once

type LoggerOption func(*LoggerConfig)

type LoggerConfig struct {
	fileName string
	console  bool
	level    zerolog.Level
	out      io.Writer
}

// WithFileLogger adds a size-rotated file output.
func WithFileLogger(fileName string) LoggerOption {
	return func(l *LoggerConfig) {
		l.fileName = fileName
	}
}

// WithConsoleLogger switches stdout to the human-readable console format.
func WithConsoleLogger() LoggerOption {
	return func(l *LoggerConfig) {
		l.console = true
	}
}

// WithLevel sets the minimum level from its name ("debug", "info", ...).
// Unknown names keep the info default.
func WithLevel(name string) LoggerOption {
	return func(l *LoggerConfig) {
		lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
		if err != nil || name == "" {
			return
		}
		l.level = lvl
	}
}

// WithOutput replaces stdout as the default destination.
func WithOutput(w io.Writer) LoggerOption {
	return func(l *LoggerConfig) {
		l.out = w
	}
}

func Init(serviceName string, opts ...LoggerOption) {
	once.Do(func() {
		logger = New(serviceName, opts...)
	})
}

// New builds a logger without touching the process-wide one.
func New(serviceName string, opts ...LoggerOption) zerolog.Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	l := &LoggerConfig{level: zerolog.InfoLevel, out: os.Stdout}
	for _, opt := range opts {
		opt(l)
	}

	output := make([]io.Writer, 0, 2)
	if l.console {
		output = append(output, zerolog.ConsoleWriter{
			Out:        l.out,
			TimeFormat: time.RFC3339,
		})
	} else {
		output = append(output, l.out)
	}
	if l.fileName != "" {
		output = append(output, &lumberjack.Logger{
			Filename:   l.fileName,
			MaxSize:    5,
			MaxBackups: 10,
			MaxAge:     14,
			Compress:   true,
		})
	}

	return zerolog.New(zerolog.MultiLevelWriter(output...)).
		Level(l.level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

func GetLogger() zerolog.Logger {
	return logger
}
