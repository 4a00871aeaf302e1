package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/johnquangdev/qa-review/internal/infrastructure/database"
	"github.com/johnquangdev/qa-review/pkg/config"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var dir string
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the QA review database schema",
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&dir, "dir", "d", "", "Migrations directory (defaults to DB_MIGRATIONS_DIR)")

	root.AddCommand(upCommand(&dir), downCommand(&dir), statusCommand(&dir))
	return root
}

func upCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), *dir, func(db *sql.DB, dir string) error {
				n, err := database.MigrateUp(db, dir)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
				return nil
			})
		},
	}
}

func downCommand(dir *string) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			return withDB(cmd.Context(), *dir, func(db *sql.DB, dir string) error {
				n, err := database.MigrateDown(db, dir, steps)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", n)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to roll back")
	return cmd
}

func statusCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which migrations are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), *dir, func(db *sql.DB, dir string) error {
				statuses, err := database.Status(db, dir)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "MIGRATION\tAPPLIED AT")
				for _, s := range statuses {
					applied := "pending"
					if s.AppliedAt != nil {
						applied = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(w, "%s\t%s\n", s.ID, applied)
				}
				return w.Flush()
			})
		},
	}
}

// withDB connects with the application configuration and runs fn
func withDB(ctx context.Context, dir string, fn func(db *sql.DB, dir string) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if dir == "" {
		dir = cfg.Database.MigrationsDir
	}
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	gdb, err := database.NewPostgresDB(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = database.CloseDB(gdb) }()

	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	return fn(sqlDB, dir)
}
