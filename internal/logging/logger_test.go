package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: "debug", Format: "json"}, &buf)

	logger.WithFields(map[string]any{"client_id": "c1"}).Debug("joined", "username", "alice")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "joined", record["msg"])
	assert.Equal(t, "c1", record["client_id"])
	assert.Equal(t, "alice", record["username"])
}

func TestNewWithWriter_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: "warn", Format: "text"}, &buf)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidFormat("pretty"))
	assert.True(t, ValidFormat("JSON"))
	assert.False(t, ValidFormat("xml"))

	assert.True(t, ValidLevel("warning"))
	assert.False(t, ValidLevel("trace"))
}

func TestContext(t *testing.T) {
	logger := Discard()
	ctx := WithLogger(context.Background(), logger)
	fallback := Discard()
	assert.Same(t, logger, FromContextOr(ctx, fallback))
	assert.Same(t, fallback, FromContextOr(context.Background(), fallback))
}
