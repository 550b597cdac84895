package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/chat-insights/internal/config"
	"github.com/ConfabulousDev/chat-insights/internal/sessionstore"
)

var (
	migrateDriver string
	migrateDSN    string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply session store migrations",
	Long: `Apply all pending schema migrations to the session store.

Defaults to DATABASE_DRIVER and DATABASE_URL from the environment.`,
	Example: `  chatinsights migrate --driver sqlite --dsn chats.db
  chatinsights migrate --dsn postgres://localhost/chats?sslmode=disable`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDriver, "driver", "", "Database driver: postgres or sqlite")
	migrateCmd.Flags().StringVar(&migrateDSN, "dsn", "", "Database URL or SQLite file path")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	driver, dsn := migrateDriver, migrateDSN
	if driver == "" || dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if driver == "" {
			driver = cfg.Database.Driver
		}
		if dsn == "" {
			dsn = cfg.Database.URL
		}
	}
	if dsn == "" {
		return errors.New("no database: pass --dsn or set DATABASE_URL")
	}

	if err := sessionstore.Migrate(driver, dsn); err != nil {
		return err
	}
	fmt.Println(countStyle.Render("✓"), "Migrations applied", dimStyle.Render("("+driver+")"))
	return nil
}
