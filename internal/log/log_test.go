package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewLogrusLoggerLevels(t *testing.T) {
	cases := []struct {
		name  string
		level string
		want  logrus.Level
	}{
		{"debug", "debug", logrus.DebugLevel},
		{"trace", "trace", logrus.TraceLevel},
		{"info", "info", logrus.InfoLevel},
		{"default", "", logrus.WarnLevel},
		{"error", "error", logrus.ErrorLevel},
		{"unknown", "chatty", logrus.WarnLevel},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := newLogrusLogger(buf, tc.level)
			assert.Equal(t, tc.want, logger.Level)
		})
	}
}

func TestNewLogrusLoggerUnknownLevelWarns(t *testing.T) {
	buf := &bytes.Buffer{}
	newLogrusLogger(buf, "chatty")

	assert.Contains(t, buf.String(), "Unknown log level")
}

func TestSetLevel(t *testing.T) {
	InitLogger()

	SetLevel("debug")
	assert.Equal(t, slog.LevelDebug, levelVar.Level())

	SetLevel("error")
	assert.Equal(t, slog.LevelError, levelVar.Level())

	SetLevel("trace")
	assert.Equal(t, slog.LevelDebug, levelVar.Level())

	SetLevel("")
	assert.Equal(t, slog.LevelWarn, levelVar.Level())

	SetLevel("chatty")
	assert.Equal(t, slog.LevelWarn, levelVar.Level())
}
