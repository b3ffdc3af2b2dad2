package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/distrihub/mcp-proxy/internal/config"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the configured downstream servers",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("Configured servers:")
	for _, name := range cfg.ServerOrder {
		fmt.Printf("- %s\n", name)
	}
	return nil
}
