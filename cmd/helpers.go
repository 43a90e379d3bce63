package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/flowrelay/internal/audit"
	"github.com/ziadkadry99/flowrelay/internal/bots"
	"github.com/ziadkadry99/flowrelay/internal/config"
	"github.com/ziadkadry99/flowrelay/internal/db"
	"github.com/ziadkadry99/flowrelay/internal/logging"
	"github.com/ziadkadry99/flowrelay/internal/relay"
)

// logOutput is where command loggers write.
var logOutput io.Writer = os.Stderr

// loadConfig loads the config without validating it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile, envFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `flowrelay init` to create a config file", err)
	}
	return cfg, nil
}

// setup loads and validates the config and builds the logger. Validation
// failures are logged before being returned so the process fails closed with
// a readable reason.
func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("refusing to start")
		return nil, logger, err
	}
	return cfg, logger, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	return logging.New(level, cfg.Log.Format, logOutput)
}

func newAdapter(cfg *config.Config, logger zerolog.Logger) *relay.Adapter {
	return relay.New(cfg.RelayConfig(),
		relay.WithLogger(logger.With().Str("component", "relay").Logger()),
	)
}

// openAuditStore returns a nil store when auditing is disabled. The returned
// close func is always safe to call.
func openAuditStore(cfg *config.Config, logger zerolog.Logger) (*audit.Store, func(), error) {
	if !cfg.Audit.Enabled {
		return nil, func() {}, nil
	}
	database, err := db.Open(cfg.Audit.DBPath)
	if err != nil {
		return nil, func() {}, fmt.Errorf("opening audit database: %w", err)
	}
	logger.Info().Str("path", database.Path()).Msg("recording exchanges")
	return audit.NewStore(database), func() { database.Close() }, nil
}

// newGateway wires the relay and the optional audit store behind a bot
// gateway.
func newGateway(adapter *relay.Adapter, store *audit.Store, logger zerolog.Logger) *bots.Gateway {
	var recorder bots.Recorder
	if store != nil {
		recorder = store
	}
	processor := bots.NewProcessor(adapter, recorder, logger.With().Str("component", "processor").Logger())
	return bots.NewGateway(processor, logger.With().Str("component", "gateway").Logger())
}
