package config

import (
	"github.com/ziadkadry99/flowrelay/internal/relay"
)

// DefaultConfigPath is where the CLI looks for its YAML config.
const DefaultConfigPath = ".flowrelay.yml"

// DefaultGreeting is sent in reply to /start.
const DefaultGreeting = "Hi {name}! Send me any question and I'll look it up in your Obsidian notes through Flowise. 🙂"

// DefaultConfig returns a Config with sensible defaults applied. Flowise
// URL, chatflow ID and tokens have no defaults and must be supplied.
func DefaultConfig() *Config {
	msgs := relay.DefaultMessages()
	return &Config{
		Flowise: FlowiseConfig{
			Timeout: relay.DefaultTimeout,
		},
		Telegram: TelegramConfig{
			PollTimeout: 60,
		},
		Discord: DiscordConfig{
			Prefix: "!",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Audit: AuditConfig{
			Enabled: false,
			DBPath:  "flowrelay.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Messages: MessagesConfig{
			Greeting:     DefaultGreeting,
			Unauthorized: msgs.Unauthorized,
			ServiceError: msgs.ServiceError,
			Unreachable:  msgs.Unreachable,
			EmptyAnswer:  msgs.EmptyAnswer,
		},
	}
}

// legacyEnv maps the plain environment names used by existing deployments
// onto config keys.
var legacyEnv = map[string]string{
	"TELEGRAM_TOKEN":       "telegram.token",
	"FLOWISE_URL":          "flowise.url",
	"FLOWISE_API_KEY":      "flowise.api_key",
	"CHATFLOW_ID":          "flowise.chatflow_id",
	"DISCORD_TOKEN":        "discord.token",
	"SLACK_BOT_TOKEN":      "slack.bot_token",
	"SLACK_SIGNING_SECRET": "slack.signing_secret",
}
