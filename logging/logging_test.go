package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-kit/log/level"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for lvl := TraceLevel; lvl <= FatalLevel; lvl++ {
		parsed, err := ParseLevel(strings.ToLower(LogLevelToString(lvl)))
		require.Nil(t, err)
		require.Equal(t, lvl, parsed)
	}
	_, err := ParseLevel("loud")
	require.NotNil(t, err)
}

func TestNewLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "logfmt", WarnLevel)
	level.Info(logger).Log("msg", "hidden")
	level.Warn(logger).Log("msg", "shown")
	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "msg=shown")
	require.Contains(t, out, "level=warn")
	require.Contains(t, out, "ts=")
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "json", TraceLevel)
	level.Debug(logger).Log("msg", "hello", "node", 3)
	var record map[string]interface{}
	require.Nil(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "hello", record["msg"])
	require.Equal(t, "debug", record["level"])
	require.EqualValues(t, 3, record["node"])
}
