package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/tasky/cmd/taskyctl/ui"
	"github.com/redmonkez12/tasky/internal/auth"
	"github.com/redmonkez12/tasky/internal/config"
	"github.com/redmonkez12/tasky/internal/database"
	"github.com/redmonkez12/tasky/internal/logging"
	"github.com/redmonkez12/tasky/internal/stats"
	"github.com/redmonkez12/tasky/internal/user"
)

func printError(err error) {
	ui.PrintError(err.Error())
}

// withDB loads configuration, opens the database and hands it to fn
func withDB(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, db *bun.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := cmd.Context()
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, cfg, db)
}

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd, func(ctx context.Context, _ *config.Config, db *bun.DB) error {
					if err := database.Migrate(ctx, db.DB); err != nil {
						return err
					}
					ui.PrintSuccess("Database is up to date")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd, func(ctx context.Context, _ *config.Config, db *bun.DB) error {
					if err := database.MigrateDown(ctx, db.DB); err != nil {
						return err
					}
					ui.PrintSuccess("Rolled back one migration")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show which migrations are applied",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd, func(ctx context.Context, _ *config.Config, db *bun.DB) error {
					return database.MigrationStatus(ctx, db.DB)
				})
			},
		},
	)

	return migrateCmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print task and user totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, _ *config.Config, db *bun.DB) error {
				st, err := stats.Collect(ctx, stats.NewRepository(db), user.NewRepository(db))
				if err != nil {
					return err
				}
				ui.PrintStats(st)
				return nil
			})
		},
	}
}

func newUserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account with a password",
		Long:  "Create an account. Missing fields are asked for interactively.",
		Args:  cobra.NoArgs,
		RunE:  runUserCreate,
	}
	createCmd.Flags().String("name", "", "Display name")
	createCmd.Flags().String("email", "", "Email address")
	createCmd.Flags().String("password", "", "Password (prompted when omitted)")

	userCmd.AddCommand(createCmd)
	return userCmd
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	in := &ui.NewUser{}
	in.Name, _ = cmd.Flags().GetString("name")
	in.Email, _ = cmd.Flags().GetString("email")
	in.Password, _ = cmd.Flags().GetString("password")

	if err := ui.RunUserForm(in, ui.Validators{
		Name:     user.ValidateName,
		Email:    func(s string) error { return auth.ValidateEmail(user.NormalizeEmail(s)) },
		Password: auth.ValidatePassword,
	}); err != nil {
		return fmt.Errorf("form cancelled: %w", err)
	}

	return withDB(cmd, func(ctx context.Context, cfg *config.Config, db *bun.DB) error {
		logger := logging.NewLogger(cfg.Server.IsDevelopment())
		// Registration only touches the user store
		registrar := auth.NewService(user.NewRepository(db), nil, nil, nil, nil, logger, auth.Durations{})

		u, err := registrar.Register(ctx, in.Name, in.Email, in.Password)
		if err != nil {
			if errors.Is(err, user.ErrDuplicateEmail) {
				return fmt.Errorf("an account with email %s already exists", user.NormalizeEmail(in.Email))
			}
			return err
		}

		ui.PrintUserCreated(u)
		return nil
	})
}

func newTokensCmd() *cobra.Command {
	tokensCmd := &cobra.Command{
		Use:   "tokens",
		Short: "Maintain password reset tokens",
	}

	tokensCmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete expired password reset tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, _ *config.Config, db *bun.DB) error {
				n, err := auth.NewRepository(db).DeleteExpiredResetTokens(ctx, time.Now())
				if err != nil {
					return err
				}
				ui.PrintSuccess(fmt.Sprintf("Deleted %d expired reset tokens", n))
				return nil
			})
		},
	})

	return tokensCmd
}
