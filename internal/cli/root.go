// Package cli wires the cobra command tree. Commands are thin: they load
// config, open the store, and call into the core packages.
package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"confplan/internal/config"
	"confplan/internal/store"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "confplan",
	Short: "Personal conference schedule planner",
	Long: `confplan scrapes a conference schedule into a local snapshot, tracks your
personal session picks with overlap warnings, and exports them to iCalendar.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(),
		"path to the config file")

	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newSelectCmd())
	rootCmd.AddCommand(newShowCmd())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "confplan.yaml"
	}
	return filepath.Join(home, ".config", "confplan", "config.yaml")
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func openStore(cfg *config.Config) *store.Store {
	return store.New(cfg.DataDir)
}
