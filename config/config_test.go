package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/scholarly/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "scholarly", cfg.AgentID)
	assert.Equal(t, StoreBadger, cfg.Store)
	assert.Equal(t, DefaultDataDir(), cfg.DataDir)

	assert.True(t, cfg.Arxiv.Enabled)
	assert.Equal(t, []string{"cs.AI", "cs.LG"}, cfg.Arxiv.Categories)
	assert.Equal(t, 5, cfg.Arxiv.MaxResults)
	assert.Equal(t, 6*time.Hour, cfg.Arxiv.Interval())
	assert.Equal(t, 3*time.Second, cfg.Arxiv.Delay())

	assert.False(t, cfg.WebSearch.Enabled)
	assert.Equal(t, 3, cfg.WebSearch.MaxResults)
	assert.Equal(t, 5*time.Hour, cfg.WebSearch.Interval())

	assert.False(t, cfg.Storm.Enabled)
	assert.False(t, cfg.AI.Enabled)
	assert.Equal(t, "embeddinggemma", cfg.AI.EmbeddingModel)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileWritesDefaults(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "scholarly", cfg.AgentID)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(written), "agent_id: scholarly")

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	dataDir := t.TempDir()
	path := writeConfig(t, `
agent_id: eliza
data_dir: `+dataDir+`
store: sqlite
arxiv:
  categories: [cs.CR]
  check_interval: 12h
ai:
  enabled: true
  chat_model: llama3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "eliza", cfg.AgentID)
	assert.Equal(t, filepath.Join(dataDir, "scholarly.db"), cfg.StorePath())
	assert.Equal(t, []string{"cs.CR"}, cfg.Arxiv.Categories)
	assert.Equal(t, 12*time.Hour, cfg.Arxiv.Interval())
	assert.Equal(t, 5, cfg.Arxiv.MaxResults, "unset keys keep defaults")
	assert.Equal(t, 3*time.Second, cfg.Arxiv.Delay())
	assert.True(t, cfg.AI.Enabled)
	assert.Equal(t, "llama3", cfg.AI.ChatModel)
	assert.Equal(t, "embeddinggemma", cfg.AI.EmbeddingModel)
}

func TestLoad_APIKeyFromEnvironment(t *testing.T) {
	t.Setenv(APIKeyEnv, "tvly-env")
	path := writeConfig(t, `
web_search:
  enabled: true
  api_key: tvly-file
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tvly-env", cfg.WebSearch.APIKey)
}

func TestStorePath(t *testing.T) {
	cfg := &Config{DataDir: "/data", Store: StoreBadger}
	assert.Equal(t, filepath.Join("/data", "badger"), cfg.StorePath())
	cfg.Store = StoreSQLite
	assert.Equal(t, filepath.Join("/data", "scholarly.db"), cfg.StorePath())
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	t.Setenv(StormURLEnv, "")
	t.Setenv(OpenAIKeyEnv, "")
	tests := []struct {
		name    string
		body    string
		wantErr error
		wantMsg string
	}{
		{name: "bad yaml", body: "arxiv: [", wantMsg: "parsing config"},
		{name: "unknown store", body: "store: postgres", wantErr: ErrInvalidStore},
		{name: "empty agent", body: `agent_id: ""`, wantErr: ErrAgentIDRequired},
		{name: "web search without key", body: "web_search:\n  enabled: true", wantErr: ErrAPIKeyRequired},
		{name: "bad interval", body: "arxiv:\n  check_interval: soon", wantMsg: "check_interval"},
		{name: "zero max results", body: "arxiv:\n  max_results_per_category: 0", wantMsg: "max_results_per_category"},
		{name: "no categories", body: "arxiv:\n  categories: []", wantMsg: "at least one category"},
		{name: "interval shorter than delay", body: "arxiv:\n  check_interval: 1s\n  min_delay: 3s", wantMsg: "shorter than min_delay"},
		{name: "storm without server", body: "storm:\n  enabled: true\n  openai_api_key: sk", wantErr: ErrStormIncomplete},
		{name: "storm without tavily key", body: "storm:\n  enabled: true\n  base_url: http://storm\n  openai_api_key: sk", wantErr: ErrStormIncomplete},
		{name: "invalid ai", body: "ai:\n  enabled: true\n  chat_model: \"\"", wantErr: ai.ErrChatModelRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestLoad_DisabledSourceSkipsValidation(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	path := writeConfig(t, "arxiv:\n  enabled: false\n  check_interval: whenever")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Arxiv.Enabled)
}

func TestLoad_StormFromEnvironment(t *testing.T) {
	t.Setenv(APIKeyEnv, "tvly-env")
	t.Setenv(StormURLEnv, "http://storm.local:8000")
	t.Setenv(OpenAIKeyEnv, "sk-env")

	cfg, err := Load(writeConfig(t, "storm:\n  enabled: true\n  base_url: http://ignored"))
	require.NoError(t, err)
	assert.True(t, cfg.Storm.Enabled)
	assert.Equal(t, "http://storm.local:8000", cfg.Storm.BaseURL)
	assert.Equal(t, "sk-env", cfg.Storm.OpenAIAPIKey)
	assert.Equal(t, "tvly-env", cfg.WebSearch.APIKey)
}
