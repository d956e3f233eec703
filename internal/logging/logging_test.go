package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"clinicdesk/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeWritesJSON(t *testing.T) {
	buff := bytes.NewBuffer(nil)
	data, err := logging.New().FromBuffer(buff).Make()
	require.NoError(t, err)
	require.Equal(t, 0, buff.Len())
	data.Logger.Info().Msg("Test")
	require.Contains(t, buff.String(), "Test")
}

func TestHandlerFields(t *testing.T) {
	buff := bytes.NewBuffer(nil)
	data, err := logging.New().FromBuffer(buff).Level("debug").Make()
	require.NoError(t, err)
	h := logging.NewHandler(data.Logger)
	h.Warn("push failed", "table", "scripts", "err", errors.New("boom"), "dangling")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buff.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "push failed", line["message"])
	assert.Equal(t, "scripts", line["table"])
	assert.Equal(t, "boom", line["err"])
	assert.Equal(t, "dangling", line["!BADKEY"])
}

func TestLevelFilters(t *testing.T) {
	buff := bytes.NewBuffer(nil)
	data, err := logging.New().FromBuffer(buff).Level("error").Make()
	require.NoError(t, err)
	h := logging.NewHandler(data.Logger)
	h.Info("hidden")
	h.Debug("hidden")
	assert.Equal(t, 0, buff.Len())
	h.Error("shown")
	assert.Contains(t, buff.String(), "shown")
}

func TestConsoleFormatAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clinicdesk.log")
	data, err := logging.New().FromPath(path).Format("console").Make()
	require.NoError(t, err)
	t.Cleanup(func() { _ = data.Close() })
	require.NotNil(t, data.LogFile)

	_, err = logging.New().Format("xml").Make()
	require.Error(t, err)
}
