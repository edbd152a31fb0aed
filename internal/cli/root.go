// Package cli provides the command-line interface for the Legalis
// assistant client.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/legalis-ai/legalis-go/internal/api"
	"github.com/legalis-ai/legalis-go/internal/config"
	"github.com/legalis-ai/legalis-go/internal/engine"
	"github.com/legalis-ai/legalis-go/internal/models"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config, client and engine, built in PersistentPreRunE.
	cfg       config.Config
	apiClient *api.Client
	eng       *engine.Engine
	logger    *slog.Logger
	logClose  func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "legalis",
	Short: "Legal-assistant chat client",
	Long: `Legalis is the command-line client of the Legalis legal-assistant
service: multi-turn conversations with the assistant over legal
documents, with server-held sessions per legal category.

Messages are quota-gated by your subscription tier; sessions live on
the server and the client keeps a reconciled local view of them.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// login works without a token, version/help without anything,
		// and the bare root command only prints usage
		switch cmd.Name() {
		case "version", "help", "login", "legalis":
			return nil
		}

		cfg = config.Load()
		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, logClose = config.SetupLogger(cfg.LogFile, level)

		if cfg.APIToken == "" {
			return fmt.Errorf("not signed in, run 'legalis login' first")
		}

		apiClient = api.New(cfg.APIURL, cfg.APIToken, logger)
		eng = engine.New(apiClient, currentUser, engine.Config{
			Jurisdiction: cfg.Jurisdiction,
			Logger:       logger,
		})
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

var (
	userOnce sync.Once
	user     *models.User
)

// currentUser fetches the authenticated profile once per invocation and
// hands it to the quota gate.
func currentUser() *models.User {
	userOnce.Do(func() {
		u, err := apiClient.Me(context.Background())
		if err != nil {
			logger.Warn("failed to fetch user profile", "error", err)
			return
		}
		user = u
	})
	return user
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(loginCmd)
}
