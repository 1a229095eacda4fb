// Package cli implements the pagacollect command line: the collection
// service, database migrations and direct calls to the Paga Collect API.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alexbotov/pagacollect/internal/api"
	"github.com/alexbotov/pagacollect/internal/config"
	"github.com/alexbotov/pagacollect/internal/logging"
	"github.com/alexbotov/pagacollect/pkg/pagacollect"
)

// Execute runs the root command and exits non-zero on failure
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pagacollect",
		Short: "Paga Collect client and collection service",
		Long: `Collect payments through the Paga Collect API.

Credentials are read from PAGA_CLIENT_ID, PAGA_PASSWORD and PAGA_API_KEY,
or from a .env file in the working directory.`,
		Version:      api.Version,
		SilenceUsage: true,
	}

	cmd.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newHashSecretCommand(),
		newBanksCommand(),
		newPayCommand(),
		newStatusCommand(),
		newHistoryCommand(),
		newRefundCommand(),
		newAccountCommand(),
	)
	return cmd
}

// loadConfig loads the configuration and a logger built from it
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Environment)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// providerClient builds an API client from the environment
func providerClient() (*pagacollect.Client, *config.Config, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Paga.Validate(); err != nil {
		return nil, nil, err
	}
	client, err := pagacollect.NewClient(cfg.Paga.ClientConfig(), pagacollect.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

// printResult writes the normalized result as JSON. A result flagged as an
// error is returned as one so the process exits non-zero.
func printResult(cmd *cobra.Command, endpoint string, result *pagacollect.Result) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return result.Err(endpoint)
}
