package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToConsoleAtLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(Config{Level: "warn"}, &buf)
	require.NoError(t, err)
	defer func() { require.NoError(t, closeFn()) }()

	logger.Info("hidden")
	logger.WithField("component", "price_resolver").Warn("visible")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "visible")
	require.Contains(t, out, "component=price_resolver")
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Config{Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("hello")
	require.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, _, err := New(Config{Level: "loud"}, &bytes.Buffer{})
	require.Error(t, err)

	_, _, err = New(Config{Format: "xml"}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestNewWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "borderless.log")
	logger, closeFn, err := New(Config{OutputFile: path, MaxSizeMB: 1}, &bytes.Buffer{})
	require.NoError(t, err)

	logger.Info("persisted")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "persisted")
}

func TestParseLevelDefault(t *testing.T) {
	level, err := ParseLevel("")
	require.NoError(t, err)
	require.Equal(t, logrus.InfoLevel, level)
}

func TestDiscard(t *testing.T) {
	Discard().Error("nothing to see")
}
