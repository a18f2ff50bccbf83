package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/okrboard/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONEncoding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := New(config.LoggerConfig{Level: "info", Encoding: "json", OutputPaths: []string{path}})
	require.NoError(t, err)

	log.Infow("task_commit_milestones_ok", "task_id", "t-1", "progress", 80)
	log.Debugw("hidden_below_level")
	_ = log.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &entry))
	assert.Equal(t, "task_commit_milestones_ok", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "t-1", entry["task_id"])
}

func TestNewFallsBackOnBadLevel(t *testing.T) {
	log, err := New(config.LoggerConfig{Level: "loud", Encoding: "console"})
	require.NoError(t, err)
	assert.NotNil(t, log.SugaredLogger)
}

func TestNopAndNamed(t *testing.T) {
	log := NewNop().Named("cascade")
	assert.NotPanics(t, func() { log.Warnw("cascade_push_partial", "parent_id", "p") })
}
