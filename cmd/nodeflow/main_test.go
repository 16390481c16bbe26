package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/nodeflow/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Metrics.Namespace = "cli_" + strings.ReplaceAll(strings.ToLower(t.Name()), "/", "_")
	return cfg
}

func TestRun_SyncFlow(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := run(context.Background(), testConfig(t), runOptions{question: "capital of France"}, zap.NewNop(), &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "answer: Paris is the capital of France.")
	assert.Contains(t, out.String(), "action: done")
	assert.NotContains(t, out.String(), "snapshot:")
}

func TestRun_AsyncFlowWithSnapshotAndHistory(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Snapshot.Enabled = true
	cfg.Snapshot.Driver = "sqlite"
	cfg.Database.Name = ":memory:"

	var out bytes.Buffer
	err := run(context.Background(), cfg,
		runOptions{question: "capital of Japan", async: true, history: true}, zap.NewNop(), &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "answer: Tokyo is the capital of Japan.")
	assert.Contains(t, text, "action: default")
	assert.Contains(t, text, "snapshot: ")

	start := strings.Index(text, "{")
	require.GreaterOrEqual(t, start, 0)
	var history struct {
		Flow   string `json:"flow"`
		Status string `json:"status"`
		Nodes  []struct {
			Node string `json:"node"`
		} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal([]byte(text[start:]), &history))
	assert.Equal(t, "nodeflow-run", history.Flow)
	assert.Equal(t, "completed", history.Status)
	require.NotEmpty(t, history.Nodes)
	assert.Equal(t, "snapshot", history.Nodes[len(history.Nodes)-1].Node)
}

func TestRun_SnapshotStoreUnavailable(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Snapshot.Enabled = true
	cfg.Snapshot.Driver = "redis"
	cfg.Redis.Addr = "127.0.0.1:1"

	err := run(context.Background(), cfg, runOptions{question: "q"}, zap.NewNop(), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open snapshot store")
}

func TestConfigCommand_PrintsEffectiveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodeflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  max_steps: 7\n"), 0644))

	var out bytes.Buffer
	require.NoError(t, configCommand([]string{"--config", path}, &out))
	assert.Contains(t, out.String(), "max_steps: 7")
	assert.Contains(t, out.String(), "namespace: nodeflow")
}

func TestConfigCommand_RejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodeflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  max_retries: 0\n"), 0644))

	err := configCommand([]string{"--config", path}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	t.Parallel()

	logger := initLogger(config.LogConfig{Level: "debug", Format: "console", OutputPaths: []string{"stderr"}})
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger = initLogger(config.LogConfig{Level: "bogus", Format: "json"})
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestPrintVersion(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	printVersion(&out)
	assert.Contains(t, out.String(), "NodeFlow dev")
}
