package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcorisi/discount-codes/cmd"
	"github.com/marcorisi/discount-codes/internal/repository"
	"github.com/marcorisi/discount-codes/internal/services"
)

var (
	codeIDFlag    uint
	sharerFlag    string
	expiresInFlag time.Duration
)

// ShareCmd creates a share link for a discount code and prints its URL.
var ShareCmd = &cobra.Command{
	Use:   "share",
	Short: "Create a public share link for a discount code",
	Long: `Creates a share of the given discount code on behalf of a user and prints
the public URL. The link expires after shares.default_ttl unless --expires-in is set.`,
	Example: `  discount-codes share --code-id 3 --username alice --expires-in 48h`,
	RunE: func(c *cobra.Command, args []string) error {
		db, err := cmd.OpenDatabase(cmd.Cfg)
		if err != nil {
			return err
		}
		defer cmd.CloseDatabase(db)

		user, err := repository.NewUserRepository(db).GetUserByUsername(c.Context(), sharerFlag)
		if err != nil {
			return fmt.Errorf("user %q: %w", sharerFlag, err)
		}

		var expiresAt *time.Time
		if expiresInFlag != 0 {
			at := time.Now().Add(expiresInFlag)
			expiresAt = &at
		}

		shareService := services.NewShareService(repository.NewShareRepository(db), repository.NewCodeRepository(db), cmd.ShareSettings(cmd.Cfg))
		share, err := shareService.CreateShare(c.Context(), codeIDFlag, user, expiresAt)
		if err != nil {
			return err
		}

		out := c.OutOrStdout()
		fmt.Fprintln(out, "Share link created:")
		fmt.Fprintf(out, "Token: %s\n", share.Token)
		fmt.Fprintf(out, "URL: %s\n", services.ShareURL(cmd.Cfg.Server.BaseURL, share.Token))
		fmt.Fprintf(out, "Expires: %s\n", share.ExpiresAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	ShareCmd.Flags().UintVar(&codeIDFlag, "code-id", 0, "id of the discount code to share")
	ShareCmd.Flags().StringVar(&sharerFlag, "username", "", "user creating the share")
	ShareCmd.Flags().DurationVar(&expiresInFlag, "expires-in", 0, "link lifetime, e.g. 48h (default shares.default_ttl)")
	ShareCmd.MarkFlagRequired("code-id")
	ShareCmd.MarkFlagRequired("username")
	cmd.RootCmd.AddCommand(ShareCmd)
}
