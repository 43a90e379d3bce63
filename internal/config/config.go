package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/flowrelay/internal/logging"
	"github.com/ziadkadry99/flowrelay/internal/relay"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// envPrefix marks nested overrides: FLOWRELAY_FLOWISE__TIMEOUT -> flowise.timeout.
const envPrefix = "FLOWRELAY_"

// Load reads configuration from the given YAML file, then overlays
// environment variables. If envFile is set, it is loaded into the process
// environment first without overriding variables that are already set.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading env file %s: %w", envFile, err)
		}
	}

	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	// Plain names: TELEGRAM_TOKEN, FLOWISE_URL, ...
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return legacyEnv[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env: %w", err)
	}

	// Prefixed overrides win over everything else.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.Flowise.URL = strings.TrimRight(strings.TrimSpace(cfg.Flowise.URL), "/")
	cfg.Flowise.ChatflowID = strings.TrimSpace(cfg.Flowise.ChatflowID)
	return cfg, nil
}

// Save writes the configuration to the given YAML file path. The file may
// hold secrets, so it is created owner-readable only.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks everything the relay needs. Chat transport tokens are
// checked separately by the commands that use them.
func (c *Config) Validate() error {
	if c.Flowise.URL == "" {
		return invalid("flowise.url is required (FLOWISE_URL)")
	}
	u, err := url.Parse(c.Flowise.URL)
	if err != nil {
		return invalid("flowise.url %q: %v", c.Flowise.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid("flowise.url %q: scheme must be http or https", c.Flowise.URL)
	}
	if u.Host == "" {
		return invalid("flowise.url %q: missing host", c.Flowise.URL)
	}

	if c.Flowise.ChatflowID == "" {
		return invalid("flowise.chatflow_id is required (CHATFLOW_ID)")
	}
	if c.Flowise.Timeout <= 0 {
		return invalid("flowise.timeout must be positive")
	}

	if c.Telegram.PollTimeout < 0 {
		return invalid("telegram.poll_timeout must be non-negative")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("server.port %d out of range", c.Server.Port)
	}
	if c.Audit.Enabled && c.Audit.DBPath == "" {
		return invalid("audit.db_path is required when audit is enabled")
	}

	if !logging.ValidLevel(c.Log.Level) {
		return invalid("log.level %q: must be one of debug, info, warn, error", c.Log.Level)
	}
	if !logging.ValidFormat(c.Log.Format) {
		return invalid("log.format %q: must be json or text", c.Log.Format)
	}

	return nil
}

// ValidateTelegram checks the settings needed to start the Telegram bot.
func (c *Config) ValidateTelegram() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return invalid("telegram.token is required (TELEGRAM_TOKEN)")
	}
	return nil
}

// DiscordEnabled reports whether a Discord token is configured.
func (c *Config) DiscordEnabled() bool {
	return strings.TrimSpace(c.Discord.Token) != ""
}

// SlackEnabled reports whether a Slack bot token is configured.
func (c *Config) SlackEnabled() bool {
	return strings.TrimSpace(c.Slack.BotToken) != ""
}

// RelayConfig builds the immutable relay configuration.
func (c *Config) RelayConfig() relay.Config {
	return relay.Config{
		BaseURL:    c.Flowise.URL,
		ChatflowID: c.Flowise.ChatflowID,
		APIKey:     c.Flowise.APIKey,
		Timeout:    c.Flowise.Timeout,
		Messages: relay.Messages{
			Unauthorized: c.Messages.Unauthorized,
			ServiceError: c.Messages.ServiceError,
			Unreachable:  c.Messages.Unreachable,
			EmptyAnswer:  c.Messages.EmptyAnswer,
		},
	}
}

// Greeting returns the configured greeting template.
func (c *Config) Greeting() string {
	if c.Messages.Greeting == "" {
		return DefaultGreeting
	}
	return c.Messages.Greeting
}
