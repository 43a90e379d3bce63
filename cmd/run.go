package cmd

import (
	"context"
	"errors"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/flowrelay/internal/bots"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Telegram bot, plus the Discord bot when a token is configured",
	Long: `Long-polls Telegram and relays every text message to the Flowise chatflow.
When discord.token (or DISCORD_TOKEN) is set, a Discord bot runs alongside it.
Runs until interrupted.`,
	RunE: runBots,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

type runner interface {
	Run(ctx context.Context) error
}

func runBots(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if err := cfg.ValidateTelegram(); err != nil {
		logger.Error().Err(err).Msg("refusing to start")
		return err
	}

	adapter := newAdapter(cfg, logger)
	store, closeStore, err := openAuditStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	gateway := newGateway(adapter, store, logger)

	telegram, err := bots.NewTelegramBot(cfg.Telegram.Token, gateway, cfg.Greeting(), cfg.Telegram.PollTimeout,
		logger.With().Str("platform", string(bots.PlatformTelegram)).Logger())
	if err != nil {
		return err
	}
	runners := []runner{telegram}

	if cfg.DiscordEnabled() {
		discord, err := bots.NewDiscordBot(cfg.Discord.Token, gateway, cfg.Greeting(), cfg.Discord.Prefix,
			logger.With().Str("platform", string(bots.PlatformDiscord)).Logger())
		if err != nil {
			return err
		}
		runners = append(runners, discord)
	}

	logger.Info().
		Str("endpoint", adapter.Endpoint()).
		Dur("timeout", adapter.Timeout()).
		Int("transports", len(runners)).
		Msg("flowrelay started")

	// A transport that fails stops the others.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, r := range runners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Run(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				cancel()
			}
		}()
	}
	wg.Wait()

	logger.Info().Msg("flowrelay stopped")
	return errors.Join(errs...)
}
