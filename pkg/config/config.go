// Package config loads assistant configuration from a JSON file with an
// environment-variable overlay. Missing files fall back to defaults so the
// assistant always starts.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	API      APIConfig      `json:"api"`
	App      AppConfig      `json:"app"`
	UI       UIConfig       `json:"ui"`
	Web      WebConfig      `json:"web"`
	Channels ChannelsConfig `json:"channels"`
}

type APIConfig struct {
	Provider     string  `json:"provider" env:"ASSISTANT_API_PROVIDER"`
	BaseURL      string  `json:"base_url" env:"ASSISTANT_API_BASE_URL"`
	Model        string  `json:"model" env:"ASSISTANT_API_MODEL"`
	APIKeyEnvVar string  `json:"api_key_env_var" env:"ASSISTANT_API_KEY_ENV_VAR"`
	APIKey       string  `json:"api_key,omitempty" env:"ASSISTANT_API_KEY"`
	Proxy        string  `json:"proxy,omitempty" env:"ASSISTANT_API_PROXY"`
	Temperature  float64 `json:"temperature" env:"ASSISTANT_API_TEMPERATURE"`
}

type AppConfig struct {
	SaveFolder           string `json:"save_folder" env:"ASSISTANT_APP_SAVE_FOLDER"`
	MaxConversationTurns int    `json:"max_conversation_turns" env:"ASSISTANT_APP_MAX_CONVERSATION_TURNS"`
	MaxContextTokens     int    `json:"max_context_tokens" env:"ASSISTANT_APP_MAX_CONTEXT_TOKENS"`
	MaxContextMessages   int    `json:"max_context_messages" env:"ASSISTANT_APP_MAX_CONTEXT_MESSAGES"`
	CodeExecutionTimeout int    `json:"code_execution_timeout" env:"ASSISTANT_APP_CODE_EXECUTION_TIMEOUT"` // seconds
	AutoSaveCode         bool   `json:"auto_save_code" env:"ASSISTANT_APP_AUTO_SAVE_CODE"`
	MaintenanceCron      string `json:"maintenance_cron" env:"ASSISTANT_APP_MAINTENANCE_CRON"`
	ArchivePath          string `json:"archive_path" env:"ASSISTANT_APP_ARCHIVE_PATH"`
}

type UIConfig struct {
	BotName        string `json:"bot_name" env:"ASSISTANT_UI_BOT_NAME"`
	PrimaryColor   string `json:"primary_color" env:"ASSISTANT_UI_PRIMARY_COLOR"`
	SecondaryColor string `json:"secondary_color" env:"ASSISTANT_UI_SECONDARY_COLOR"`
	ErrorColor     string `json:"error_color" env:"ASSISTANT_UI_ERROR_COLOR"`
}

type WebConfig struct {
	Host string `json:"host" env:"ASSISTANT_WEB_HOST"`
	Port int    `json:"port" env:"ASSISTANT_WEB_PORT"`
}

type ChannelsConfig struct {
	Discord DiscordConfig `json:"discord"`
}

type DiscordConfig struct {
	Token     string   `json:"token" env:"ASSISTANT_CHANNELS_DISCORD_TOKEN"`
	AllowFrom []string `json:"allow_from" env:"ASSISTANT_CHANNELS_DISCORD_ALLOW_FROM"`
}

func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Provider:     "openrouter",
			BaseURL:      "https://openrouter.ai/api/v1",
			Model:        "tngtech/deepseek-r1t-chimera:free",
			APIKeyEnvVar: "OPENROUTER_API_KEY",
			Temperature:  0.7,
		},
		App: AppConfig{
			SaveFolder:           "bot_outputs",
			MaxConversationTurns: 10,
			MaxContextTokens:     4000,
			MaxContextMessages:   20,
			CodeExecutionTimeout: 5,
			AutoSaveCode:         true,
			MaintenanceCron:      "*/15 * * * *",
			ArchivePath:          filepath.Join("bot_outputs", "assistant.db"),
		},
		UI: UIConfig{
			BotName:        "Advanced Python Assistant",
			PrimaryColor:   "cyan",
			SecondaryColor: "green",
			ErrorColor:     "red",
		},
		Web: WebConfig{
			Host: "127.0.0.1",
			Port: 5000,
		},
		Channels: ChannelsConfig{
			Discord: DiscordConfig{AllowFrom: []string{}},
		},
	}
}

// LoadConfig reads the JSON config at path, overlays environment variables,
// and fills defaults for anything unset. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if envErr := env.Parse(cfg); envErr != nil {
				return nil, envErr
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes the config as indented JSON, creating parent directories
// as needed.
func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ResolveAPIKey returns the key from the configured environment variable,
// falling back to the direct config value.
func (c *Config) ResolveAPIKey() string {
	envVar := strings.TrimSpace(c.API.APIKeyEnvVar)
	if envVar != "" {
		if key := os.Getenv(envVar); key != "" {
			return key
		}
	}
	return c.API.APIKey
}
