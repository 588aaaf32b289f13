package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	adminUsername string
	adminPassword string
	adminName     string
)

var createAdminCmd = &cobra.Command{
	Use:   "employees:create-admin",
	Short: "Create the first admin account (no-op when the username exists)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminPassword == "" {
			return errors.New("--password is required")
		}
		a, done, err := bootstrap()
		if err != nil {
			return err
		}
		defer done()
		e, created, err := a.Employees.EnsureAdmin(cmd.Context(), adminUsername, adminPassword, adminName)
		if err != nil {
			return err
		}
		if !created {
			fmt.Fprintf(cmd.OutOrStdout(), "Employee %q already exists (id %d).\n", e.Username, e.ID)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Admin %q created (id %d).\n", e.Username, e.ID)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVarP(&adminUsername, "username", "u", "admin", "Login name")
	createAdminCmd.Flags().StringVarP(&adminPassword, "password", "p", "", "Password (min 6 characters)")
	createAdminCmd.Flags().StringVarP(&adminName, "name", "n", "Administrator", "Display name")
	rootCmd.AddCommand(createAdminCmd)
}
