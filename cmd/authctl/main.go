package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "authctl",
		Short:         "Administer the credential store",
		Long:          "Create accounts, set passwords, print hashes and run migrations against the configured credential store.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user (interactive when flags are missing)",
		RunE:  runUserCreate,
	}
	createCmd.Flags().String("email", "", "Account email")
	createCmd.Flags().String("password", "", "Account password")

	setPasswordCmd := &cobra.Command{
		Use:   "set-password",
		Short: "Replace a user's password",
		RunE:  runUserSetPassword,
	}
	setPasswordCmd.Flags().String("email", "", "Account email")
	setPasswordCmd.Flags().String("password", "", "New password")
	setPasswordCmd.Flags().Bool("revoke-sessions", true, "End the user's Redis-backed sessions")

	userCmd.AddCommand(createCmd, setPasswordCmd)

	hashCmd := &cobra.Command{
		Use:   "hash",
		Short: "Print a password hash",
		RunE:  runHash,
	}
	hashCmd.Flags().String("password", "", "Password to hash (prompted when empty)")
	hashCmd.Flags().String("algo", "bcrypt", "Hash scheme (bcrypt, argon2id)")
	hashCmd.Flags().Int("cost", 10, "bcrypt cost")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL migrations to the PostgreSQL store",
		RunE:  runMigrate,
	}

	rootCmd.AddCommand(userCmd, hashCmd, migrateCmd)
	return rootCmd
}
