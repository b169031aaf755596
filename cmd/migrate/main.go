package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"todoclient/internal/logging"
	"todoclient/internal/migration"
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the devserver's PostgreSQL schema migrations",
	Long: `Apply the devserver's PostgreSQL schema migrations.

Connection settings come from DB_HOST, DB_PORT, DB_USER, DB_PASSWORD,
DB_NAME and DB_SSL_MODE. DB_DRIVER must be "postgres"; SQLite databases
are migrated automatically by the devserver.`,
	SilenceUsage: true,
}

func main() {
	logging.InitLogger(logging.NewLogConfigFromEnv("migrate"))
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withMigrator opens a migrator for the duration of fn
func withMigrator(fn func(*migration.Migrator) error) error {
	m, err := migration.NewFromEnv()
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()
	return fn(m)
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(func(m *migration.Migrator) error {
			if err := m.Up(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(func(m *migration.Migrator) error {
			if err := m.Down(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations rolled back")
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(func(m *migration.Migrator) error {
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if dirty {
				fmt.Fprintf(out, "Current version: %d (dirty)\n", version)
				fmt.Fprintln(out, "The database is in a dirty state. Fix it by hand, then run 'migrate force <version>'.")
				return nil
			}
			fmt.Fprintf(out, "Current version: %d\n", version)
			return nil
		})
	},
}

var stepsCmd = &cobra.Command{
	Use:   "steps <n>",
	Short: "Run n migrations (negative n rolls back)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid number of steps: %w", err)
		}
		return withMigrator(func(m *migration.Migrator) error {
			if err := m.Steps(n); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ran %d migration steps\n", n)
			return nil
		})
	},
}

var forceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Set the schema version without running migrations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version number: %w", err)
		}
		return withMigrator(func(m *migration.Migrator) error {
			if err := m.Force(version); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Forced schema version to %d\n", version)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(upCmd, downCmd, versionCmd, stepsCmd, forceCmd)
}
