package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "nested", "console.log")
		l, err := New(Config{Level: "debug", File: logFile})
		require.NoError(t, err)

		zl := l.Zerolog()
		zl.Debug().Str("server", "srv-1").Msg("mounted")
		require.NoError(t, l.Close())

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"server":"srv-1"`)
		assert.Contains(t, string(data), `"message":"mounted"`)
	})

	t.Run("level filters", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "console.log")
		l, err := New(Config{Level: "warn", File: logFile})
		require.NoError(t, err)

		zl := l.Zerolog()
		zl.Info().Msg("hidden")
		zl.Warn().Msg("shown")
		require.NoError(t, l.Close())

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "hidden")
		assert.Contains(t, string(data), "shown")
	})

	t.Run("redaction", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "console.log")
		l, err := New(Config{File: logFile, Redaction: true})
		require.NoError(t, err)

		zl := l.Zerolog()
		zl.Info().Str("auth", "Bearer abc.def.ghi").Msg("dial")
		require.NoError(t, l.Close())

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "abc.def.ghi")
		assert.Contains(t, string(data), redacted)
	})

	t.Run("no sinks", func(t *testing.T) {
		l, err := New(Config{Level: "bogus"})
		require.NoError(t, err)
		assert.NoError(t, l.Close())
	})
}

func TestRedactor(t *testing.T) {
	r := NewRedactor()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bearer", "Authorization: Bearer eyJhbGciOi.x-y", "Authorization: " + redacted},
		{"query token", "wss://hub/console?access_token=abc123&x=1", "wss://hub/console?" + redacted + "&x=1"},
		{"management password", `password "Auth" hunter2`, redacted},
		{"plain", "status 3", "status 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Redact(tt.in))
		})
	}

	require.NoError(t, r.AddPattern(`cert-[0-9]+`))
	assert.Equal(t, redacted, r.Redact("cert-42"))
	assert.Error(t, r.AddPattern(`(`))
}

func TestRedactingWriter_ReportsFullLength(t *testing.T) {
	var buf bytes.Buffer
	w := NewRedactor().Wrap(&buf)
	in := []byte("token=abcdefghijklmnop")
	n, err := w.Write(in)
	require.NoError(t, err)
	assert.Equal(t, len(in), n)
	assert.Equal(t, redacted, buf.String())
}

func TestSanitizeForLog(t *testing.T) {
	assert.Equal(t, "kill  client", SanitizeForLog("kill\r\nclient"))
	assert.Equal(t, "a b", SanitizeForLog("a\tb"))
	assert.Equal(t, "bell", SanitizeForLog("be\x07ll\x7f"))
	assert.Equal(t, "状态 ok", SanitizeForLog("状态 ok"))
}
