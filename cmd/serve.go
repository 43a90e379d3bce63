package cmd

import (
	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/flowrelay/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio exposing the Flowise chatflow as an ask_chatflow tool.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		adapter := newAdapter(cfg, logger)
		store, closeStore, err := openAuditStore(cfg, logger)
		if err != nil {
			return err
		}
		defer closeStore()

		var history mcpserver.History
		if store != nil {
			history = store
		}

		mcpserver.Version = Version
		logger.Info().Str("endpoint", adapter.Endpoint()).Msg("flowrelay MCP server started on stdio")

		srv := mcpserver.NewServer(adapter, history, logger.With().Str("component", "mcp").Logger())
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
