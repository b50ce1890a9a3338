package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcorisi/discount-codes/cmd"
	customerrors "github.com/marcorisi/discount-codes/internal/errors"
	"github.com/marcorisi/discount-codes/internal/repository"
	"github.com/marcorisi/discount-codes/internal/services"
)

// StatsCmd prints a share's state without counting a visit.
var StatsCmd = &cobra.Command{
	Use:   "stats [token]",
	Short: "Show the state and visit count of a share link",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	cmd.RootCmd.AddCommand(StatsCmd)
}

func runStats(c *cobra.Command, args []string) error {
	token := args[0]

	db, err := cmd.OpenDatabase(cmd.Cfg)
	if err != nil {
		return err
	}
	defer cmd.CloseDatabase(db)

	shareService := services.NewShareService(repository.NewShareRepository(db), repository.NewCodeRepository(db), cmd.ShareSettings(cmd.Cfg))
	view, err := shareService.ShareStats(c.Context(), token)
	if err != nil {
		if customerrors.IsNotFound(err) {
			return fmt.Errorf("share %q not found", token)
		}
		return fmt.Errorf("error retrieving statistics: %w", err)
	}

	status := "valid"
	if view.Expired {
		status = "expired"
	}
	out := c.OutOrStdout()
	fmt.Fprintf(out, "Share: %s\n", token)
	fmt.Fprintf(out, "Code: %s (%s)\n", view.Code.Code, view.Code.StoreName)
	fmt.Fprintf(out, "Status: %s\n", status)
	fmt.Fprintf(out, "Visits: %d\n", view.Share.VisitCount)
	fmt.Fprintf(out, "Created: %s\n", view.Share.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "Expires: %s\n", view.Share.ExpiresAt.Format(time.RFC3339))
	return nil
}
