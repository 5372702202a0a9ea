package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "nats://localhost:4222", cfg.Bus.Servers[0])
	assert.True(t, cfg.Voice.Crossfade, "crossfade on by default")
	assert.Equal(t, "lexical", cfg.Voice.DuplicatePolicy)
	assert.Equal(t, "diphone", cfg.TTS.Mode)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
runtime_name: test-voice
voice:
  unit_directory: /srv/voices/kal
  crossfade: false
  duplicate_policy: reject
store:
  retention_mode: ephemeral
  path: ""
tts:
  chunk_duration_ms: 200
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test-voice", cfg.RuntimeName)
	assert.Equal(t, "/srv/voices/kal", cfg.Voice.UnitDirectory)
	assert.False(t, cfg.Voice.Crossfade)
	assert.Equal(t, "reject", cfg.Voice.DuplicatePolicy)
	assert.Equal(t, "./voices/cmudict.dict", cfg.Voice.DictionaryPath, "unset fields keep defaults")
	assert.Equal(t, 200, cfg.TTS.ChunkDurationMS)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LOQA_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("LOQA_BUS_USERNAME", "alice")
	t.Setenv("LOQA_BUS_PASSWORD", "secret")
	t.Setenv("LOQA_BUS_TLS_INSECURE", "true")
	t.Setenv("LOQA_BUS_CONNECT_TIMEOUT_MS", "5000")
	t.Setenv("LOQA_NODE_ID", "test-node")
	t.Setenv("LOQA_NODE_HEARTBEAT_INTERVAL_MS", "1500")
	t.Setenv("LOQA_NODE_HEARTBEAT_TIMEOUT_MS", "5000")
	t.Setenv("LOQA_STORE_PATH", "./tmp.db")
	t.Setenv("LOQA_STORE_RETENTION_MODE", "persistent")
	t.Setenv("LOQA_STORE_RETENTION_DAYS", "7")
	t.Setenv("LOQA_STORE_MAX_EVENTS", "123")
	t.Setenv("LOQA_STORE_VACUUM_ON_START", "true")
	t.Setenv("LOQA_VOICE_UNIT_DIRECTORY", "/tmp/units")
	t.Setenv("LOQA_VOICE_CROSSFADE", "false")
	t.Setenv("LOQA_VOICE_VOLUME", "80")
	t.Setenv("LOQA_TELEMETRY_LOG_FILE", "/var/log/diphone.log")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Len(t, cfg.Bus.Servers, 2)
	assert.Equal(t, "alice", cfg.Bus.Username)
	assert.Equal(t, "secret", cfg.Bus.Password)
	assert.True(t, cfg.Bus.TLSInsecure)
	assert.Equal(t, 5000, cfg.Bus.ConnectTimeout)
	assert.Equal(t, "test-node", cfg.Node.ID)
	assert.Equal(t, 1500, cfg.Node.HeartbeatInterval)
	assert.Equal(t, 5000, cfg.Node.HeartbeatTimeout)
	assert.Equal(t, "./tmp.db", cfg.Store.Path)
	assert.Equal(t, "persistent", cfg.Store.RetentionMode)
	assert.Equal(t, 7, cfg.Store.RetentionDays)
	assert.Equal(t, 123, cfg.Store.MaxEvents)
	assert.True(t, cfg.Store.VacuumOnStart)
	assert.Equal(t, "/tmp/units", cfg.Voice.UnitDirectory)
	assert.False(t, cfg.Voice.Crossfade)
	assert.Equal(t, 80, cfg.Voice.Volume)
	assert.Equal(t, "/var/log/diphone.log", cfg.Telemetry.LogFile)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"retention mode":   func(c *Config) { c.Store.RetentionMode = "forever" },
		"duplicate policy": func(c *Config) { c.Voice.DuplicatePolicy = "first" },
		"volume":           func(c *Config) { c.Voice.Volume = 101 },
		"tts mode":         func(c *Config) { c.TTS.Mode = "exec" },
		"tts without bus":  func(c *Config) { c.Bus.Enabled = false },
		"unit directory":   func(c *Config) { c.Voice.UnitDirectory = "" },
		"cache size":       func(c *Config) { c.Voice.CacheSize = 0 },
		"heartbeat":        func(c *Config) { c.Node.HeartbeatTimeout = c.Node.HeartbeatInterval },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, validate(cfg))
		})
	}
}

func TestValidateEphemeralStoreWithoutPath(t *testing.T) {
	cfg := Default()
	cfg.Store.RetentionMode = "ephemeral"
	cfg.Store.Path = ""
	assert.NoError(t, validate(cfg))
}
