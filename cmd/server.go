package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/flowrelay/internal/audit"
	"github.com/ziadkadry99/flowrelay/internal/bots"
	"github.com/ziadkadry99/flowrelay/internal/server"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server for Slack and the web chat",
	Long: `Starts an HTTP server exposing a WebSocket web chat and, when slack.bot_token
is set, the Slack events webhook, all relaying to the Flowise chatflow. When
auditing is enabled the exchange history API is mounted too.`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 0, "port to listen on (overrides server.port)")
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	adapter := newAdapter(cfg, logger)
	store, closeStore, err := openAuditStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	gateway := newGateway(adapter, store, logger)

	srv := server.New(server.Config{
		Port:     cfg.Server.Port,
		AllowAll: cfg.Server.AllowAllOrigins,
		// Leave room for the relay to time out and report it.
		RequestTimeout: adapter.Timeout() + 10*time.Second,
		Endpoint:       adapter.Endpoint(),
	}, logger.With().Str("component", "http").Logger())

	var slackHandler *bots.SlackHandler
	if cfg.SlackEnabled() {
		slackLogger := logger.With().Str("platform", string(bots.PlatformSlack)).Logger()
		if cfg.Slack.SigningSecret == "" {
			slackLogger.Warn().Msg("slack.signing_secret is not set; accepting unsigned events")
		}
		slackHandler = bots.NewSlackHandler(gateway, cfg.Slack.BotToken, cfg.Slack.SigningSecret, slackLogger)
	} else {
		logger.Info().Msg("slack webhook disabled: slack.bot_token not set")
	}

	r := srv.Router()
	bots.RegisterRoutes(r,
		slackHandler,
		bots.NewChatHandler(gateway, cfg.Server.AllowAllOrigins, logger.With().Str("platform", string(bots.PlatformWeb)).Logger()),
	)
	if store != nil {
		audit.RegisterRoutes(r, store)
	}

	ctx := cmd.Context()
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), adapter.Timeout()+5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("server shutdown")
		}
		// Slack events are answered after the webhook returns.
		if slackHandler != nil {
			slackHandler.Wait()
		}
	}()

	logger.Info().
		Str("version", Version).
		Int("port", cfg.Server.Port).
		Str("endpoint", adapter.Endpoint()).
		Bool("slack", slackHandler != nil).
		Bool("audit", store != nil).
		Msg("flowrelay server starting")

	if err := srv.Start(); err != nil {
		return err
	}
	<-stopped
	return nil
}
