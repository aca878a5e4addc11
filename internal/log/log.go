package log

import (
	"io"
	"log/slog"
	"os"

	runtime "github.com/banzaicloud/logrus-runtime-formatter"
	"github.com/bombsimon/logrusr/v4"
	"github.com/go-logr/logr"
	"github.com/sirupsen/logrus"
)

type Level string

const (
	LevelTrace Level = "trace"
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// levels maps the configured level names onto both logging backends.
var levels = map[Level]struct {
	slog   slog.Level
	logrus logrus.Level
}{
	LevelTrace: {slog.LevelDebug, logrus.TraceLevel},
	LevelDebug: {slog.LevelDebug, logrus.DebugLevel},
	LevelInfo:  {slog.LevelInfo, logrus.InfoLevel},
	LevelWarn:  {slog.LevelWarn, logrus.WarnLevel},
	LevelError: {slog.LevelError, logrus.ErrorLevel},
}

var levelVar *slog.LevelVar

// lookup resolves name, an empty name is warn.
func lookup(name string) (slog.Level, logrus.Level, bool) {
	if name == "" {
		name = string(LevelWarn)
	}

	l, ok := levels[Level(name)]
	if !ok {
		return slog.LevelWarn, logrus.WarnLevel, false
	}

	return l.slog, l.logrus, true
}

// InitLogger sets up the default slog logger on stderr, stdout carries the
// command output.
func InitLogger() {
	levelVar = &slog.LevelVar{}
	levelVar.Set(slog.LevelWarn)

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar, AddSource: true})))
}

// SetLevel changes the level of the default logger.
func SetLevel(name string) {
	if levelVar == nil {
		InitLogger()
	}

	level, _, ok := lookup(name)
	if !ok {
		slog.Warn("Unknown log level, using warn", "loglevel", name)
	}

	levelVar.Set(level)
}

// NewLogrusLogger returns a JSON logrus logger on stderr.
func NewLogrusLogger(name string) *logrus.Logger {
	return newLogrusLogger(os.Stderr, name)
}

func newLogrusLogger(out io.Writer, name string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	logger.SetFormatter(&runtime.Formatter{
		ChildFormatter: &logrus.JSONFormatter{},
		File:           true,
		Line:           true,
		BaseNameOnly:   true,
	})

	_, level, ok := lookup(name)
	logger.SetLevel(level)

	if !ok {
		logger.WithField("logLevel", name).Warn("Unknown log level, using warn")
	}

	return logger
}

// NewComponentLogger returns a logger entry tagged with the component name.
func NewComponentLogger(logger *logrus.Logger, component string) *logrus.Entry {
	return logger.WithField("component", component)
}

// NewLogr wraps a logrus logger for libraries logging through logr, like otel.
func NewLogr(logger *logrus.Logger) logr.Logger {
	return logrusr.New(logger)
}
