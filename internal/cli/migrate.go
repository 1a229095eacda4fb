package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alexbotov/pagacollect/internal/auth"
	"github.com/alexbotov/pagacollect/internal/database"
)

func newMigrateCommand() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Apply pending database migrations and print the resulting schema version. With --reset all migrations are rolled back first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := database.New(cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			if reset {
				logger.Warn("rolling back all migrations")
				if err := db.Reset(); err != nil {
					return err
				}
			}
			if err := db.Migrate(); err != nil {
				return err
			}

			version, err := db.Version()
			if err != nil {
				return err
			}
			logger.Info("database migrated", zap.Int64("version", version))
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "roll back all migrations before applying them")
	return cmd
}

func newHashSecretCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-secret <secret>",
		Short: "Print the bcrypt hash of an operator secret",
		Long:  "Print the bcrypt hash of an operator secret for use as PAGACOLLECT_OPERATOR_SECRET_HASH.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashSecret(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
