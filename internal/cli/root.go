// Package cli provides the command-line interface for streamchat.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/streamagent/streamchat-go/internal/client"
	"github.com/streamagent/streamchat-go/internal/config"
	"github.com/streamagent/streamchat-go/internal/metrics"
	"github.com/streamagent/streamchat-go/internal/session"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and backend client
	cfg       config.Config
	apiClient *client.Client
	directory *session.Directory
	collector *metrics.Collector
	logger    *slog.Logger
	logClose  func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "streamchat",
	Short: "Terminal client for the Stream-Agent chat backend",
	Long: `Streamchat is a terminal client for the Stream-Agent chat backend.

It streams assistant replies as they are generated, including tool
executions and retrieval citations, and manages your conversations.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip backend setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, logClose = config.SetupLogger(cfg.LogFile, level)

		apiClient = client.New(cfg.ServerURL)
		if token := loadToken(cfg.TokenFile); token != "" {
			apiClient.SetToken(token)
		}
		refreshFile := cfg.TokenFile + ".refresh"
		if token := loadToken(refreshFile); token != "" {
			apiClient.SetRefreshToken(token)
		}
		apiClient.OnTokenRefresh(func(tokens client.TokenResponse) {
			if err := saveToken(cfg.TokenFile, tokens.AccessToken); err != nil {
				logger.Warn("failed to cache access token", "error", err)
			}
			if tokens.RefreshToken != "" {
				if err := saveToken(refreshFile, tokens.RefreshToken); err != nil {
					logger.Warn("failed to cache refresh token", "error", err)
				}
			}
		})

		directory = session.NewDirectory()
		collector = metrics.NewCollector()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logClose != nil {
			if err := logClose(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadToken reads the cached access token, if any.
func loadToken(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// recordStore tracks the latency of one conversation-store call.
func recordStore(start time.Time) {
	if collector != nil {
		collector.RecordTiming(metrics.OpStore, time.Since(start))
	}
}

// exitWithError prints an error message and exits with code 1.
func exitWithError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
