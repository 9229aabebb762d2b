package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", "JSON")

	log.WithField("table", "pets").Debug("loaded")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "loaded", entry["msg"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "pets", entry["table"])
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "chatty", "text")

	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	log.Debug("hidden")
	assert.Empty(t, buf.String())

	log.Info("shown")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestOperationTagsEntries(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", "json")

	first := log.Operation("upsert")
	second := log.Operation("upsert")

	assert.Equal(t, "upsert", first.Data["op"])
	id, ok := first.Data["op_id"].(string)
	require.True(t, ok)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, first.Data["op_id"], second.Data["op_id"])

	first.Info("done")
	assert.Contains(t, buf.String(), `"op":"upsert"`)
}

func TestDiscard(t *testing.T) {
	log := Discard()
	log.Error("nowhere")
	assert.NotNil(t, log.Operation("noop"))
}
