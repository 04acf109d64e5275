package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath      = "config.toml"
	DefaultHTTPAddr        = ":8080"
	DefaultGraphBaseURL    = "https://graph.facebook.com"
	DefaultGraphAPIVersion = "v16.0"
	DefaultChatModel       = "gpt-3.5-turbo"
	DefaultWhisperModel    = "whisper-1"
	DefaultSystemPrompt    = "You are a helpful assistant."
	DefaultSweepSchedule   = "@every 5m"
)

type Config struct {
	Log          LogConfig          `toml:"log"`
	Server       ServerConfig       `toml:"server"`
	WhatsApp     WhatsAppConfig     `toml:"whatsapp"`
	OpenAI       OpenAIConfig       `toml:"openai"`
	Conversation ConversationConfig `toml:"conversation"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format" validate:"oneof=text json"`
}

type ServerConfig struct {
	Addr string `toml:"addr" validate:"required"`
}

// WhatsAppConfig carries the Graph API endpoint settings. AccessToken and
// VerifyToken are secrets and come from the environment when unset in the
// file (WHATSAPP_TOKEN, VERIFY_TOKEN).
type WhatsAppConfig struct {
	GraphBaseURL   string `toml:"graph_base_url" validate:"required,url"`
	APIVersion     string `toml:"api_version" validate:"required"`
	AccessToken    string `toml:"access_token"`
	VerifyToken    string `toml:"verify_token"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"gte=0"`
}

func (c WhatsAppConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// OpenAIConfig covers both the chat-completion and transcription endpoints.
// APIKey falls back to OPENAI_API_KEY.
type OpenAIConfig struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	ChatModel      string  `toml:"chat_model" validate:"required"`
	WhisperModel   string  `toml:"whisper_model" validate:"required"`
	Temperature    float32 `toml:"temperature" validate:"gte=0,lte=2"`
	TimeoutSeconds int     `toml:"timeout_seconds" validate:"gte=0"`
}

func (c OpenAIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ConversationConfig bounds the in-memory transcript store. A zero TTL or
// MaxSenders disables the corresponding eviction.
type ConversationConfig struct {
	SystemPrompt  string `toml:"system_prompt" validate:"required"`
	TTL           string `toml:"ttl"`
	MaxSenders    int    `toml:"max_senders" validate:"gte=0"`
	SweepSchedule string `toml:"sweep_schedule"`
}

func (c ConversationConfig) TTLDuration() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0, fmt.Errorf("conversation ttl: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("conversation ttl must not be negative")
	}
	return d, nil
}

// Load reads the TOML file at path (DefaultConfigPath when empty), applies
// defaults and environment overrides, and validates the result. A missing
// file is not an error: defaults plus environment are enough to run.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path == "" {
		path = DefaultConfigPath
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("stat config %s: %w", path, err)
	}

	applyEnv(&cfg)

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	if _, err := cfg.Conversation.TTLDuration(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		WhatsApp: WhatsAppConfig{
			GraphBaseURL: DefaultGraphBaseURL,
			APIVersion:   DefaultGraphAPIVersion,
		},
		OpenAI: OpenAIConfig{
			ChatModel:    DefaultChatModel,
			WhisperModel: DefaultWhisperModel,
			Temperature:  0.7,
		},
		Conversation: ConversationConfig{
			SystemPrompt:  DefaultSystemPrompt,
			SweepSchedule: DefaultSweepSchedule,
		},
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("WHATSAPP_TOKEN"); v != "" {
		cfg.WhatsApp.AccessToken = v
	}
	if v := os.Getenv("VERIFY_TOKEN"); v != "" {
		cfg.WhatsApp.VerifyToken = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
}
