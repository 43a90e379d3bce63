package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/flowrelay/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize flowrelay configuration with an interactive wizard",
	Long:  `Runs an interactive wizard that asks for the Flowise URL, chatflow ID, API key and Telegram token and writes them to .flowrelay.yml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := loadConfig()
		if err != nil {
			return err
		}
		_, err = config.RunWizard(cfgFile, base)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
