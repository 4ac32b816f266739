package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.raw), "parseLevel(%q)", tt.raw)
	}
}

func TestNewAndNop(t *testing.T) {
	l, err := New(Config{Level: "debug", Development: true})
	require.NoError(t, err)

	child := l.With(String("market", "chicago"))
	child.Info("fetched", Int("bytes", 10), Error(errors.New("none")))

	nop := NewNop()
	nop.Error("discarded", Float64("score", 1))
	assert.NoError(t, nop.Sync())
}
