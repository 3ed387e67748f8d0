// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/connectix/connectix/internal/config"
	"github.com/connectix/connectix/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return newMigrateCmdWithDeps(nil)
}

func newMigrateCmdWithDeps(deps *MigrateDeps) *cobra.Command {
	if deps == nil {
		deps = &MigrateDeps{}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = func(url string) (Migrator, error) {
			return store.NewMigrator(url)
		}
	}
	if deps.DatabaseURLGetter == nil {
		deps.DatabaseURLGetter = getDatabaseURL
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Manage the PostgreSQL account schema. Without a subcommand all pending
migrations are applied. The database URL comes from --config or DATABASE_URL.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateUp(cmd, deps)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateUp(cmd, deps)
		},
	})
	cmd.AddCommand(newMigrateDownCmd(deps))
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateStatus(cmd, deps)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it",
		Long: `Record VERSION as the current schema version and clear the dirty flag.
Use it only after repairing a migration that failed midway.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(deps, func(m Migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				cmd.Printf("Forced schema version to %d\n", version)
				return nil
			})
		},
	})

	return cmd
}

func newMigrateDownCmd(deps *MigrateDeps) *cobra.Command {
	var (
		steps int
		all   bool
	)
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long: `Roll back the most recent migration, or --steps of them. --all rolls
back every migration and drops all account data.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 1 {
				return oops.Code("INVALID_STEPS").Errorf("--steps must be at least 1, got %d", steps)
			}
			return withMigrator(deps, func(m Migrator) error {
				if all {
					cmd.Println("Rolling back all migrations...")
					if err := m.Down(); err != nil {
						return err
					}
				} else {
					cmd.Printf("Rolling back %d migration(s)...\n", steps)
					if err := m.Steps(-steps); err != nil {
						return err
					}
				}
				return printVersion(cmd, m)
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.Flags().BoolVar(&all, "all", false, "roll back every migration")
	return cmd
}

func runMigrateUp(cmd *cobra.Command, deps *MigrateDeps) error {
	return withMigrator(deps, func(m Migrator) error {
		pending, err := m.PendingMigrations()
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			cmd.Println("No pending migrations")
			return nil
		}

		cmd.Printf("Running %d migration(s)...\n", len(pending))
		if err := m.Up(); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
		}
		cmd.Println("Migrations completed successfully")
		return printVersion(cmd, m)
	})
}

func runMigrateStatus(cmd *cobra.Command, deps *MigrateDeps) error {
	return withMigrator(deps, func(m Migrator) error {
		if err := printVersion(cmd, m); err != nil {
			return err
		}
		applied, err := m.AppliedMigrations()
		if err != nil {
			return err
		}
		pending, err := m.PendingMigrations()
		if err != nil {
			return err
		}
		cmd.Printf("Applied: %s\n", formatVersions(applied))
		cmd.Printf("Pending: %s\n", formatVersions(pending))
		return nil
	})
}

func withMigrator(deps *MigrateDeps, fn func(Migrator) error) error {
	url, err := deps.DatabaseURLGetter()
	if err != nil {
		return err
	}
	m, err := deps.MigratorFactory(url)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "open migrator").Wrap(err)
	}
	fnErr := fn(m)
	closeErr := m.Close()
	if fnErr != nil {
		return fnErr
	}
	return closeErr
}

func printVersion(cmd *cobra.Command, m Migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if dirty {
		cmd.Printf("Schema version: %d (dirty)\n", version)
		return nil
	}
	cmd.Printf("Schema version: %d\n", version)
	return nil
}

func formatVersions(versions []uint) string {
	if len(versions) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(versions))
	for _, v := range versions {
		name, err := store.MigrationName(v)
		if err != nil || name == "" {
			name = fmt.Sprintf("%06d", v)
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, ", ")
}

// parseForceVersion parses the VERSION argument of migrate force.
// Sscanf stops at the first non-digit, so "3abc" is 3.
func parseForceVersion(arg string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(arg, "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", arg).Wrapf(err, "version must be an integer")
	}
	return version, nil
}

// getDatabaseURL resolves database-url from --config and the environment.
func getDatabaseURL() (string, error) {
	path, err := resolveConfigFile()
	if err != nil {
		return "", err
	}
	cfg, err := config.Load(nil, path)
	if err != nil {
		return "", err
	}
	if cfg.DatabaseURL == "" {
		return "", oops.Code("CONFIG_INVALID").Errorf("database-url is required (set DATABASE_URL)")
	}
	return cfg.DatabaseURL, nil
}
