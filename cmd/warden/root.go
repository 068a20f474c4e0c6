package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/layer-3/warden/config"
	"github.com/layer-3/warden/internal/logging"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "warden.yaml"

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger

	rootCmd = &cobra.Command{
		Use:   "warden",
		Short: "Warden - admin access for Nostr-keyed instances",
		Long: `Warden logs an administrator in by signing a Nostr challenge, keeps the
resulting session, and reads admin tables whose protected fields are
NIP-44 encrypted to the admin key.

Usage:
  warden <command> [flags]

Run 'warden help <command>' for more details on a specific command.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg = loaded

			logCfg := cfg.Logging
			if verbose {
				logCfg.Level = "debug"
			}
			logger = logging.New(logCfg, os.Stderr)
			slog.SetDefault(logger)
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(guardCmd)
	rootCmd.AddCommand(gateCmd)
	rootCmd.AddCommand(rowsCmd)
	rootCmd.AddCommand(insertCmd)
}

// loadConfig reads --config. A missing default file means built-in defaults;
// a missing file that was asked for explicitly is an error.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	loaded, err := config.Load(configPath)
	if err == nil {
		return loaded, nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	return nil, fmt.Errorf("loading config: %w", err)
}
