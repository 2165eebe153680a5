// Command mimic imitates chat users with Markov models trained on their
// message history.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var (
	configPath string
	envPath    string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:           "mimic",
	Short:         "Imitate chat users with Markov models",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config.json", "Path to the JSON config file")
	RootCmd.PersistentFlags().StringVar(&envPath, "env", ".env", "Optional dotenv file holding secrets")
}

// loadEnvironment reads the config file and secrets and builds the logger.
func loadEnvironment() (*Config, Secrets, *slog.Logger, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, Secrets{}, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	secrets, err := LoadSecrets(envPath)
	if err != nil {
		return nil, Secrets{}, nil, err
	}
	return config, secrets, newLogger(config.Server.LogLevel), nil
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
