package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcorisi/discount-codes/cmd"
	"github.com/marcorisi/discount-codes/internal/repository"
	"github.com/marcorisi/discount-codes/internal/services"
)

var (
	usernameFlag string
	passwordFlag string
)

// CreateUserCmd adds a login account.
var CreateUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create a user who can log in and share codes",
	Example: `  discount-codes create-user --username alice --password 's3cret'`,
	RunE: func(c *cobra.Command, args []string) error {
		db, err := cmd.OpenDatabase(cmd.Cfg)
		if err != nil {
			return err
		}
		defer cmd.CloseDatabase(db)

		auth := services.NewAuthService(repository.NewUserRepository(db))
		user, err := auth.CreateUser(c.Context(), services.Credentials{Username: usernameFlag, Password: passwordFlag})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.OutOrStdout(), "User created: %s (id %d)\n", user.Username, user.ID)
		return nil
	},
}

func init() {
	CreateUserCmd.Flags().StringVar(&usernameFlag, "username", "", "login name")
	CreateUserCmd.Flags().StringVar(&passwordFlag, "password", "", "login password")
	CreateUserCmd.MarkFlagRequired("username")
	CreateUserCmd.MarkFlagRequired("password")
	cmd.RootCmd.AddCommand(CreateUserCmd)
}
