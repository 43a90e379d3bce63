package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
)

func validateFlowiseURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must start with http:// or https://")
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func validateRequired(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	if d <= 0 {
		return errors.New("must be positive")
	}
	return nil
}

// RunWizard runs an interactive configuration wizard seeded from base (or
// defaults when nil) and saves the result to path.
func RunWizard(path string, base *Config) (*Config, error) {
	fmt.Println("Welcome to flowrelay! Let's connect your bot to Flowise.")
	fmt.Println()

	cfg := base
	if cfg == nil {
		cfg = DefaultConfig()
	}

	// 1. Flowise instance.
	urlPrompt := promptui.Prompt{
		Label:    "Flowise URL",
		Default:  orDefault(cfg.Flowise.URL, "http://localhost:3000"),
		Validate: validateFlowiseURL,
	}
	flowiseURL, err := urlPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("flowise url: %w", err)
	}

	// 2. Chatflow.
	chatflowPrompt := promptui.Prompt{
		Label:    "Chatflow ID",
		Default:  cfg.Flowise.ChatflowID,
		Validate: validateRequired,
	}
	chatflowID, err := chatflowPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("chatflow id: %w", err)
	}

	// 3. API key, optional.
	keyPrompt := promptui.Prompt{
		Label: "Flowise API key (leave blank if the chatflow is unprotected)",
		Mask:  '*',
	}
	apiKey, err := keyPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("api key: %w", err)
	}

	// 4. Timeout.
	timeoutPrompt := promptui.Prompt{
		Label:    "Request timeout",
		Default:  cfg.Flowise.Timeout.String(),
		Validate: validateDuration,
	}
	timeoutStr, err := timeoutPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("timeout: %w", err)
	}
	timeout, _ := time.ParseDuration(strings.TrimSpace(timeoutStr))

	// 5. Telegram.
	tokenPrompt := promptui.Prompt{
		Label:    "Telegram bot token",
		Mask:     '*',
		Validate: validateRequired,
	}
	token, err := tokenPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("telegram token: %w", err)
	}

	cfg.Flowise.URL = strings.TrimRight(strings.TrimSpace(flowiseURL), "/")
	cfg.Flowise.ChatflowID = strings.TrimSpace(chatflowID)
	if apiKey != "" {
		cfg.Flowise.APIKey = apiKey
	}
	cfg.Flowise.Timeout = timeout
	cfg.Telegram.Token = strings.TrimSpace(token)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err == nil {
		confirm := promptui.Prompt{
			Label:     fmt.Sprintf("%s exists, overwrite", path),
			IsConfirm: true,
		}
		if _, err := confirm.Run(); err != nil {
			return nil, fmt.Errorf("not overwriting %s", path)
		}
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	fmt.Println("Start the bot with: flowrelay run")
	return cfg, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
