// 配置加载器测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	// 不指定配置文件，应该返回默认值
	cfg, err := NewLoader().WithEnvPrefix("NODEFLOW_TEST_DEFAULTS").Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 1, cfg.Engine.MaxRetries)
	assert.Equal(t, "nodeflow", cfg.Metrics.Namespace)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nodeflow.yaml")

	yamlContent := `
engine:
  max_retries: 3
  retry_delay: 250ms
  backoff_multiplier: 2
  max_steps: 50
  parallel_limit: 4

log:
  level: "debug"
  format: "console"

metrics:
  enabled: true
  listen_addr: ":9999"

snapshot:
  enabled: true
  driver: "redis"
  ttl: 1h
  keys: ["question", "context"]

redis:
  addr: "redis.example.com:6379"
  db: 1
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := NewLoader().
		WithConfigPath(configPath).
		WithEnvPrefix("NODEFLOW_TEST_YAML").
		Load()
	require.NoError(t, err)

	// 验证 YAML 值覆盖了默认值
	assert.Equal(t, 3, cfg.Engine.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.RetryDelay)
	assert.Equal(t, 2.0, cfg.Engine.BackoffMultiplier)
	assert.Equal(t, 50, cfg.Engine.MaxSteps)
	assert.Equal(t, 4, cfg.Engine.ParallelLimit)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9999", cfg.Metrics.ListenAddr)
	assert.Equal(t, "/metrics", cfg.Metrics.Path, "未指定的字段保留默认值")

	assert.Equal(t, "redis", cfg.Snapshot.Driver)
	assert.Equal(t, time.Hour, cfg.Snapshot.TTL)
	assert.Equal(t, []string{"question", "context"}, cfg.Snapshot.Keys)

	assert.Equal(t, "redis.example.com:6379", cfg.Redis.Addr)
	assert.Equal(t, 1, cfg.Redis.DB)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().
		WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")).
		WithEnvPrefix("NODEFLOW_TEST_MISSING").
		Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("engine: [unclosed"), 0644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config from file")
}

// Not parallel: t.Setenv.
func TestLoader_EnvOverridesYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nodeflow.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("engine:\n  max_retries: 2\n"), 0644))

	t.Setenv("NODEFLOW_ENGINE_MAX_RETRIES", "5")
	t.Setenv("NODEFLOW_ENGINE_RETRY_DELAY", "2s")
	t.Setenv("NODEFLOW_ENGINE_JITTER", "true")
	t.Setenv("NODEFLOW_ENGINE_RATE_LIMIT_RPS", "12.5")
	t.Setenv("NODEFLOW_LOG_OUTPUT_PATHS", "stdout, /tmp/nodeflow.log")
	t.Setenv("NODEFLOW_TELEMETRY_ENABLED", "true")

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Engine.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Engine.RetryDelay)
	assert.True(t, cfg.Engine.Jitter)
	assert.Equal(t, 12.5, cfg.Engine.RateLimitRPS)
	assert.Equal(t, []string{"stdout", "/tmp/nodeflow.log"}, cfg.Log.OutputPaths)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("NODEFLOW_BADENV_ENGINE_MAX_STEPS", "many")

	_, err := NewLoader().WithEnvPrefix("NODEFLOW_BADENV").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NODEFLOW_BADENV_ENGINE_MAX_STEPS")
}

func TestLoader_Validators(t *testing.T) {
	cfg, err := NewLoader().
		WithEnvPrefix("NODEFLOW_TEST_VALID").
		WithValidator((*Config).Validate).
		Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	_, err = NewLoader().
		WithEnvPrefix("NODEFLOW_TEST_VALID").
		WithValidator(func(c *Config) error {
			c.Engine.MaxRetries = 0
			return c.Validate()
		}).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

// --- Validate 测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "zero retries",
			mutate:  func(c *Config) { c.Engine.MaxRetries = 0 },
			wantErr: "max_retries",
		},
		{
			name:    "negative delay",
			mutate:  func(c *Config) { c.Engine.RetryDelay = -time.Second },
			wantErr: "retry_delay",
		},
		{
			name:    "shrinking backoff",
			mutate:  func(c *Config) { c.Engine.BackoffMultiplier = 0.5 },
			wantErr: "backoff_multiplier",
		},
		{
			name:    "negative parallel limit",
			mutate:  func(c *Config) { c.Engine.ParallelLimit = -1 },
			wantErr: "engine limits",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: "log format",
		},
		{
			name:    "sample rate out of range",
			mutate:  func(c *Config) { c.Telemetry.SampleRate = 1.5 },
			wantErr: "sample_rate",
		},
		{
			name: "unknown snapshot driver",
			mutate: func(c *Config) {
				c.Snapshot.Enabled = true
				c.Snapshot.Driver = "mongo"
			},
			wantErr: "snapshot driver",
		},
		{
			name:   "disabled snapshot ignores driver",
			mutate: func(c *Config) { c.Snapshot.Driver = "mongo" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	pg := DatabaseConfig{
		Driver: "postgres", Host: "db", Port: 5432, User: "u",
		Password: "p", Name: "flows", SSLMode: "disable",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=flows sslmode=disable", pg.DSN())

	sqlite := DatabaseConfig{Driver: "sqlite", Name: ":memory:"}
	assert.Equal(t, ":memory:", sqlite.DSN())

	assert.Empty(t, (&DatabaseConfig{Driver: "oracle"}).DSN())
}

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nodeflow.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("log:\n  format: xml\n"), 0644))

	assert.Panics(t, func() { MustLoad(configPath) })
}
