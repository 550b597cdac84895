package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/chat-insights/internal/sessionstore"
)

var (
	importInputs []string
	importSQLite string
	importDryRun bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load session exports into a SQLite session store",
	Long: `Read JSON or YAML session exports and save every session into a SQLite
database, creating the schema if needed. Sessions already present are replaced.`,
	Example: `  chatinsights import --input march.json.zst --input april.yaml --sqlite chats.db`,
	RunE:    runImport,
}

func init() {
	importCmd.Flags().StringSliceVarP(&importInputs, "input", "i", nil, "Session export file; repeatable")
	importCmd.Flags().StringVar(&importSQLite, "sqlite", "", "Path to the SQLite database")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Parse the exports without writing")
	importCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sessions, err := sessionstore.FileSource{Paths: importInputs}.ListSessions(ctx, sessionstore.Query{})
	if err != nil {
		return err
	}
	if importDryRun {
		fmt.Println(sectionStyle.Render("Dry run:"), countStyle.Render(fmt.Sprint(len(sessions))), "sessions parsed")
		return nil
	}
	if importSQLite == "" {
		return errors.New("--sqlite is required unless --dry-run is set")
	}

	if err := sessionstore.Migrate(sessionstore.DriverSQLite, importSQLite); err != nil {
		return err
	}
	store, err := sessionstore.Open(ctx, sessionstore.DriverSQLite, importSQLite)
	if err != nil {
		return err
	}
	defer store.Close()

	var failed int
	for i := range sessions {
		if err := store.SaveSession(ctx, sessions[i]); err != nil {
			failed++
			fmt.Println(errorStyle.Render("✗"), sessions[i].ID, dimStyle.Render(err.Error()))
		}
	}
	fmt.Println(countStyle.Render("✓"), fmt.Sprintf("Imported %d sessions", len(sessions)-failed))
	if failed > 0 {
		return fmt.Errorf("%d sessions failed to import", failed)
	}
	return nil
}
