package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/juridoc/juridoc/auth"
	"github.com/juridoc/juridoc/config"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage service accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username> <password>",
	Short: "Register a new account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openUserStore()
		if err != nil {
			return err
		}
		if err := store.Register(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "account created:", args[0])
		return nil
	},
}

var userResetCmd = &cobra.Command{
	Use:   "reset <admin> <username> <new-password>",
	Short: "Reset another account's password (admin only)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openUserStore()
		if err != nil {
			return err
		}
		if err := store.ResetPassword(args[0], args[1], args[2]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "password reset for:", args[1])
		return nil
	},
}

func openUserStore() (*auth.Store, error) {
	cfg := config.Load()
	return auth.Open(cfg.UsersFile, cfg.AdminPassword)
}

func init() {
	userCmd.AddCommand(userAddCmd, userResetCmd)
	rootCmd.AddCommand(userCmd)
}
