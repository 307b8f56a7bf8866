package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-binding/framework/logging"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]logging.Level{
		"debug":   logging.LevelDebug,
		"INFO":    logging.LevelInfo,
		"warning": logging.LevelWarn,
		" error ": logging.LevelError,
		"bogus":   logging.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, logging.ParseLevel(in), in)
	}
}

func TestNew_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{JSON: true, Service: "inspector", Output: &buf})

	logger.Info("bound", "id", "abc")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "bound", rec["msg"])
	assert.Equal(t, "inspector", rec["service"])
	assert.Equal(t, "abc", rec["id"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: logging.LevelWarn, Output: &buf})

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestWith_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Output: &buf}).With("binding", "b1")

	logger.Info("changed")
	assert.Contains(t, buf.String(), "binding=b1")
}
