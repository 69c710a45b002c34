package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_WithoutWriter(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		l, err := Initialize(env, nil)
		require.NoError(t, err)
		assert.NotNil(t, l)
	}
}

func TestInitialize_TeesJSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	l, err := Initialize("production", &buf)
	require.NoError(t, err)

	l.Info("intent created")
	_ = l.Sync()

	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "intent created", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Contains(t, entry, "timestamp")
}
