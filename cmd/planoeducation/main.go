// Command planoeducation runs the streaming chat relay and its terminal clients.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planoeducation/planoeducation/internal/config"
)

var Version = "dev"

var (
	logLevel  string
	serverURL string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "planoeducation",
		Short:         "Planoeducation - streaming chat relay",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "relay URL for chat clients (overrides PLANO_SERVER_URL)")

	// Add subcommands
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(askCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies command line overrides.
func loadConfig() *config.Config {
	cfg := config.Load()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	cfg.ConfigureLogging()
	return cfg
}
