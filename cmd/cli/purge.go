package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcorisi/discount-codes/cmd"
	"github.com/marcorisi/discount-codes/internal/repository"
	"github.com/marcorisi/discount-codes/internal/services"
)

var olderThanFlag time.Duration

// PurgeSharesCmd deletes expired shares. Run it from cron; the server never
// deletes shares by itself.
var PurgeSharesCmd = &cobra.Command{
	Use:   "purge-shares",
	Short: "Delete expired share links",
	Example: `  discount-codes purge-shares --older-than 168h`,
	RunE: func(c *cobra.Command, args []string) error {
		db, err := cmd.OpenDatabase(cmd.Cfg)
		if err != nil {
			return err
		}
		defer cmd.CloseDatabase(db)

		shareService := services.NewShareService(repository.NewShareRepository(db), repository.NewCodeRepository(db), cmd.ShareSettings(cmd.Cfg))
		n, err := shareService.PurgeExpiredShares(c.Context(), olderThanFlag)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.OutOrStdout(), "Deleted %d expired share(s).\n", n)
		return nil
	},
}

func init() {
	PurgeSharesCmd.Flags().DurationVar(&olderThanFlag, "older-than", 0, "only delete shares expired for at least this long")
	cmd.RootCmd.AddCommand(PurgeSharesCmd)
}
