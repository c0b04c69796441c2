package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type logEntry map[string]any

func TestLoggerInfoWithFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "info", Writer: buf})
	require.NoError(t, err)

	log = log.WithFields(map[string]any{"store": "orders"})
	log.Info("rows fetched", map[string]any{"first": 0, "last": 49})

	var entry logEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "rows fetched", entry["message"])
	require.Equal(t, "orders", entry["store"])
	require.EqualValues(t, 49, entry["last"])
	require.Equal(t, "info", entry["level"])
}

func TestLoggerDebugRespectsLevel(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "info", Writer: buf})
	require.NoError(t, err)

	log.Debug("this should not appear")
	require.Equal(t, "", strings.TrimSpace(buf.String()))
}

func TestLoggerErrorIncludesContext(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "debug", Writer: buf})
	require.NoError(t, err)

	log.With("cache").Error(errors.New("boom"), "fetch failed")

	var entry logEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "fetch failed", entry["message"])
	require.Equal(t, "cache", entry["component"])
	require.Equal(t, "boom", entry["error"])
}

func TestNilLoggerIsSilent(t *testing.T) {
	var log *Logger
	log.Info("ignored")
	log.Warn("ignored")
	log.Error(errors.New("x"), "ignored")
	require.Nil(t, log.With("anything"))
}

func TestInvalidLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	require.Error(t, err)
}
