package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcorisi/discount-codes/cmd"
	"github.com/marcorisi/discount-codes/internal/models"
	"github.com/marcorisi/discount-codes/internal/repository"
	"github.com/marcorisi/discount-codes/internal/services"
)

var (
	codeInput services.CodeInput
	ownerFlag string
)

// AddCodeCmd stores a discount code, optionally owned by a user.
var AddCodeCmd = &cobra.Command{
	Use:   "add-code",
	Short: "Store a discount code",
	Example: `  discount-codes add-code --code SAVE10 --store Acme --value 10% --expiry 2026-12-31 --username alice`,
	RunE: func(c *cobra.Command, args []string) error {
		db, err := cmd.OpenDatabase(cmd.Cfg)
		if err != nil {
			return err
		}
		defer cmd.CloseDatabase(db)

		var owner *models.User
		if ownerFlag != "" {
			owner, err = repository.NewUserRepository(db).GetUserByUsername(c.Context(), ownerFlag)
			if err != nil {
				return fmt.Errorf("owner %q: %w", ownerFlag, err)
			}
		}

		code, err := services.NewCodeService(repository.NewCodeRepository(db)).AddCode(c.Context(), codeInput, owner)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.OutOrStdout(), "Discount code stored with id %d\n", code.ID)
		return nil
	},
}

func init() {
	f := AddCodeCmd.Flags()
	f.StringVar(&codeInput.Code, "code", "", "the discount code itself")
	f.StringVar(&codeInput.StoreName, "store", "", "store the code applies to")
	f.StringVar(&codeInput.StoreURL, "url", "", "store URL")
	f.StringVar(&codeInput.DiscountValue, "value", "", "discount value, e.g. 10% or 5 EUR")
	f.StringVar(&codeInput.ExpiryDate, "expiry", "", "last valid day, YYYY-MM-DD")
	f.StringVar(&codeInput.Notes, "notes", "", "free-form notes")
	f.BoolVar(&codeInput.IsUsed, "used", false, "mark the code as already used")
	f.StringVar(&ownerFlag, "username", "", "owner of the code")
	AddCodeCmd.MarkFlagRequired("code")
	AddCodeCmd.MarkFlagRequired("store")
	cmd.RootCmd.AddCommand(AddCodeCmd)
}
