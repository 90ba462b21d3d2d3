package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
environment: test
server:
  port: 8080
backend:
  type: clickhouse
binance:
  websocket_url: wss://stream.binance.com:9443
  symbols: [BTCUSDT, ETHUSDT]
advisory:
  history_backend: memory
  snapshot_ttl: 30s
  advisors:
    - name: claude
      provider: anthropic
      model: claude-sonnet-4-20250514
      api_key_env: ANTHROPIC_API_KEY
      timeout: 90s
    - name: grok
      provider: openai
      endpoint: https://api.x.ai
      model: grok-3
      api_key_env: XAI_API_KEY
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Binance.Symbols)
	require.Len(t, cfg.Advisory.Advisors, 2)
	assert.Equal(t, "claude", cfg.Advisory.Advisors[0].Name)
	assert.Equal(t, "ANTHROPIC_API_KEY", cfg.Advisory.Advisors[0].APIKeyEnv)
	assert.Equal(t, "https://api.x.ai", cfg.Advisory.Advisors[1].Endpoint)
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SYMBOLS", "SOLUSDT")
	t.Setenv("BACKEND", "kafka")
	t.Setenv("HISTORY_BACKEND", "redis")

	cfg, err := LoadWithEnv(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"SOLUSDT"}, cfg.Binance.Symbols)
	assert.Equal(t, "kafka", cfg.Backend.Type)
	assert.Equal(t, "redis", cfg.Advisory.HistoryBackend)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing environment", func(c *Config) { c.Environment = "" }},
		{"bad backend", func(c *Config) { c.Backend.Type = "postgres" }},
		{"no symbols", func(c *Config) { c.Binance.Symbols = nil }},
		{"bad history backend", func(c *Config) { c.Advisory.HistoryBackend = "dynamo" }},
		{"duplicate advisor", func(c *Config) {
			c.Advisory.Advisors = append(c.Advisory.Advisors, c.Advisory.Advisors[0])
		}},
		{"unknown provider", func(c *Config) {
			c.Advisory.Advisors[0].Provider = "cohere"
		}},
		{"unnamed advisor", func(c *Config) {
			c.Advisory.Advisors[0].Name = ""
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, sampleYAML))
			require.NoError(t, err)
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
