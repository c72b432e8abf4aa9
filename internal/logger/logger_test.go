package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(level string) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	l := New("dbinit", "test", level)
	l.out = buf
	l.colorEnabled = false
	return l, buf
}

func TestLevelFiltering(t *testing.T) {
	t.Run("debug lines are suppressed at info level", func(t *testing.T) {
		l, buf := newTestLogger("info")

		l.Debug("catalog probe")
		assert.Empty(t, buf.String())

		l.Info("bootstrap started")
		assert.Contains(t, buf.String(), "bootstrap started")
	})

	t.Run("debug level prints everything", func(t *testing.T) {
		l, buf := newTestLogger("debug")

		l.Debug("catalog probe")
		l.Warn("type exists")

		assert.Contains(t, buf.String(), "catalog probe")
		assert.Contains(t, buf.String(), "type exists")
	})

	t.Run("warn level suppresses info", func(t *testing.T) {
		l, buf := newTestLogger("warn")

		l.Info("bootstrap started")
		assert.Empty(t, buf.String())

		l.Errorf("step %d failed", 5)
		assert.Contains(t, buf.String(), "step 5 failed")
	})

	t.Run("unknown level name falls back to info", func(t *testing.T) {
		l, buf := newTestLogger("verbose")

		l.Debug("catalog probe")
		assert.Empty(t, buf.String())

		l.Info("bootstrap started")
		assert.Contains(t, buf.String(), "bootstrap started")
	})

	t.Run("level names are case insensitive", func(t *testing.T) {
		l, buf := newTestLogger("DEBUG")

		l.Debug("catalog probe")
		assert.Contains(t, buf.String(), "catalog probe")
	})
}

func TestFormatLogLevel(t *testing.T) {
	assert.Contains(t, formatLogLevel("ERROR"), "ERROR")
	assert.Contains(t, formatLogLevel("WARN"), "WARN")
	// Padded to a fixed column width
	assert.GreaterOrEqual(t, len(formatLogLevel("INFO")), LogLevelWidth)
}
