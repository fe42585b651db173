package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"Error", LevelError},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestStdLogger_LevelFilterAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLoggerTo(&buf, LevelInfo)
	ctx := context.Background()

	l.Debug(ctx, "hidden")
	l.Info(ctx, "run finished", map[string]interface{}{"trades": 3, "balance": 1050.5})
	l.Error(ctx, errors.New("boom"), "fold failed")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] run finished | balance=1050.5 trades=3")
	assert.Contains(t, out, "[ERROR] fold failed | error: boom")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestStdLogger_MergesFieldMaps(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLoggerTo(&buf, LevelDebug)

	l.Warn(context.Background(), "fold skipped",
		map[string]interface{}{"fold": 1, "reason": "first"},
		map[string]interface{}{"reason": "second"})

	assert.Contains(t, buf.String(), "[WARN] fold skipped | fold=1 reason=second")
}

func TestZapLogger_ForwardsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := WrapZap(zap.New(core))
	ctx := context.Background()

	l.Info(ctx, "combination evaluated", map[string]interface{}{"score": 1.5})
	l.Error(ctx, errors.New("bad"), "combination failed")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "combination evaluated", entries[0].Message)
	assert.Equal(t, 1.5, entries[0].ContextMap()["score"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "bad", entries[1].ContextMap()["error"])
}

func TestNewZap(t *testing.T) {
	for _, dev := range []bool{true, false} {
		l, err := NewZap(dev, LevelWarn)
		require.NoError(t, err)
		l.Info(context.Background(), "dropped")
	}
}
