package config

import "time"

// Config is the top-level flowrelay configuration, corresponding to .flowrelay.yml.
type Config struct {
	Flowise  FlowiseConfig  `yaml:"flowise" koanf:"flowise"`
	Telegram TelegramConfig `yaml:"telegram" koanf:"telegram"`
	Discord  DiscordConfig  `yaml:"discord" koanf:"discord"`
	Slack    SlackConfig    `yaml:"slack" koanf:"slack"`
	Server   ServerConfig   `yaml:"server" koanf:"server"`
	Audit    AuditConfig    `yaml:"audit" koanf:"audit"`
	Log      LogConfig      `yaml:"log" koanf:"log"`
	Messages MessagesConfig `yaml:"messages" koanf:"messages"`
}

// FlowiseConfig points the relay at a chatflow on a Flowise instance.
type FlowiseConfig struct {
	URL        string        `yaml:"url" koanf:"url"`
	APIKey     string        `yaml:"api_key" koanf:"api_key"`
	ChatflowID string        `yaml:"chatflow_id" koanf:"chatflow_id"`
	Timeout    time.Duration `yaml:"timeout" koanf:"timeout"`
}

// TelegramConfig holds the Telegram bot settings.
type TelegramConfig struct {
	Token string `yaml:"token" koanf:"token"`
	// PollTimeout is the long-polling timeout in seconds.
	PollTimeout int `yaml:"poll_timeout" koanf:"poll_timeout"`
}

// DiscordConfig holds the optional Discord bot settings.
type DiscordConfig struct {
	Token  string `yaml:"token" koanf:"token"`
	Prefix string `yaml:"prefix" koanf:"prefix"`
}

// SlackConfig holds Slack webhook settings. BotToken is the xoxb- token
// replies are posted with; without it the Slack webhook is not mounted.
type SlackConfig struct {
	BotToken      string `yaml:"bot_token" koanf:"bot_token"`
	SigningSecret string `yaml:"signing_secret" koanf:"signing_secret"`
}

// ServerConfig holds webhook server settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// AuditConfig controls the optional exchange history.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled" koanf:"enabled"`
	DBPath  string `yaml:"db_path" koanf:"db_path"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}

// MessagesConfig overrides the user-facing texts. Greeting may contain
// {name}; ServiceError may contain {status} and {body}.
type MessagesConfig struct {
	Greeting     string `yaml:"greeting" koanf:"greeting"`
	Unauthorized string `yaml:"unauthorized" koanf:"unauthorized"`
	ServiceError string `yaml:"service_error" koanf:"service_error"`
	Unreachable  string `yaml:"unreachable" koanf:"unreachable"`
	EmptyAnswer  string `yaml:"empty_answer" koanf:"empty_answer"`
}
