package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_RedactsSecrets(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core))

	l.Info("dispatching payment", map[string]any{
		"merchantReference": "INV-1",
		"merchantSecret":    "48656C6C6F",
		"secureKey":         "abc",
		"SecureHash":        "DEADBEEF",
	})

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "INV-1", ctx["merchantReference"])
	assert.Equal(t, Redacted, ctx["merchantSecret"])
	assert.Equal(t, Redacted, ctx["secureKey"])
	assert.Equal(t, Redacted, ctx["SecureHash"])
}

func TestNewZapLogger_Levels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error", "bogus"} {
		l, err := NewZapLogger(lvl)
		require.NoError(t, err)
		require.NotNil(t, l)
	}
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
}
