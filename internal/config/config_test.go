package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wabridge/wabridge/internal/config"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultHTTPAddr, cfg.Server.Addr)
	assert.Equal(t, config.DefaultGraphBaseURL, cfg.WhatsApp.GraphBaseURL)
	assert.Equal(t, config.DefaultGraphAPIVersion, cfg.WhatsApp.APIVersion)
	assert.Equal(t, config.DefaultChatModel, cfg.OpenAI.ChatModel)
	assert.Equal(t, config.DefaultWhisperModel, cfg.OpenAI.WhisperModel)
	assert.InDelta(t, 0.7, cfg.OpenAI.Temperature, 1e-6)
	assert.Equal(t, config.DefaultSystemPrompt, cfg.Conversation.SystemPrompt)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
addr = ":9090"

[openai]
chat_model = "gpt-4o-mini"
temperature = 0.2

[conversation]
ttl = "45m"
max_senders = 100
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.ChatModel)
	assert.InDelta(t, 0.2, cfg.OpenAI.Temperature, 1e-6)
	assert.Equal(t, 100, cfg.Conversation.MaxSenders)

	ttl, err := cfg.Conversation.TTLDuration()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, ttl)
}

func TestLoad_EnvSuppliesSecrets(t *testing.T) {
	t.Setenv("WHATSAPP_TOKEN", "wa-token")
	t.Setenv("VERIFY_TOKEN", "verify-token")
	t.Setenv("OPENAI_API_KEY", "openai-key")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, "wa-token", cfg.WhatsApp.AccessToken)
	assert.Equal(t, "verify-token", cfg.WhatsApp.VerifyToken)
	assert.Equal(t, "openai-key", cfg.OpenAI.APIKey)
}

func TestLoad_RejectsInvalidTTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[conversation]
ttl = "soon"
`), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsInvalidLogFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[log]
format = "xml"
`), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}
