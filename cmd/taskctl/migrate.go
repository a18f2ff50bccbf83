package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/okrboard/backend/internal/infrastructure/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.RunMigrations(database); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", green("✓"))
		return nil
	},
}
