package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLogLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLogLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLogLevel("verbose"))
}

func TestInitializeWritesToFile(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	file := filepath.Join(t.TempDir(), "engagement.log")
	require.NoError(t, Initialize("debug", file))
	assert.True(t, Log.Core().Enabled(zapcore.DebugLevel))

	WarnWithFields("something odd", nil, WithUserID(7))
	_ = Close()
	assert.FileExists(t, file)
}
