package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}

func TestLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, &Config{Level: "info", Format: "json"})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("fetched",
		String("symbol", "BTCUSDT"),
		Int("candles", 50),
		Float64("high", 101.5),
		Bool("cached", true),
		Duration("latency", 1500*time.Millisecond),
	)
	l.Error("failed", Error(errors.New("boom")), Error(nil))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "fetched", lines[0]["message"])
	assert.Equal(t, "BTCUSDT", lines[0]["symbol"])
	assert.EqualValues(t, 50, lines[0]["candles"])
	assert.EqualValues(t, 101.5, lines[0]["high"])
	assert.Equal(t, true, lines[0]["cached"])
	assert.EqualValues(t, 1500, lines[0]["latency"])
	assert.Contains(t, lines[0], "time")

	assert.Equal(t, "error", lines[1]["level"])
	assert.Equal(t, "boom", lines[1]["error"])
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, &Config{Level: "debug"})
	require.NoError(t, err)

	child := l.With(String("session", "abc"), Strings("panes", []string{"price", "volume"}))
	child.Warn("slow")
	l.Warn("plain")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "abc", lines[0]["session"])
	assert.Equal(t, "price, volume", lines[0]["panes"])
	assert.NotContains(t, lines[1], "session")
}

func TestLoggerSkipsNilError(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, &Config{Level: "info"})
	require.NoError(t, err)

	l.Info("ok", Error(nil))
	l.With(Error(nil)).Info("child")
	l.Error("failed", Error(errors.New("boom")), Error(nil))

	raw := buf.String()
	assert.Equal(t, 1, strings.Count(raw, `"error":`))
	assert.NotContains(t, raw, `"error":null`)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.NotContains(t, lines[0], "error")
	assert.NotContains(t, lines[1], "error")
	assert.Equal(t, "boom", lines[2]["error"])
}

func TestLoggerBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	require.Error(t, err)
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().With(Int("n", 1)).Error("dropped", Error(errors.New("x")))
	})
}
