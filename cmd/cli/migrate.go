package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcorisi/discount-codes/cmd"
	"github.com/marcorisi/discount-codes/internal/database"
)

// MigrateCmd creates or updates the users, discount_codes and shares tables.
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Executes database migrations to create or update tables.",
	Long: `Connects to the configured SQLite database and runs GORM automatic
migrations for the users, discount_codes and shares tables.`,
	RunE: func(c *cobra.Command, args []string) error {
		db, err := database.Open(cmd.Cfg.Database.Name)
		if err != nil {
			return err
		}
		defer cmd.CloseDatabase(db)

		if err := database.AutoMigrate(db); err != nil {
			return err
		}
		fmt.Fprintln(c.OutOrStdout(), "Database migrations executed successfully.")
		return nil
	},
}

func init() {
	cmd.RootCmd.AddCommand(MigrateCmd)
}
