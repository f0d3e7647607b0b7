package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Prints the effective configuration as YAML",
	Long: `Prints the configuration after merging the defaults with the config
files and environment variables, in the following order:

1. File: ~/.config/iver-wharf/temperatures/temperatures-config.yml
2. File: ./temperatures-config.yml
3. File from environment variable: TEMPERATURES_CONFIG
4. File from the --config flag
5. Environment variables, prefixed with TEMPERATURES`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := rootConfig.YAML()
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
