package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tajious/ejare/internal/auth"
	"github.com/tajious/ejare/internal/config"
	"github.com/tajious/ejare/internal/logger"
	"github.com/tajious/ejare/internal/storage"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "ejarectl",
		Short:        "Administrative tasks for the rental contract service",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		migrateCmd(),
		seedAdminCmd(),
		hashPasswordCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStorage() (*storage.GormStorage, error) {
	db, err := config.LoadDatabase()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Options{
		ServiceName: "ejarectl",
		Level:       logger.ParseLevel("warn"),
		Format:      logger.FormatConsole,
		Output:      os.Stderr,
	})
	return storage.New(db, log)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage()
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func seedAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the admin account if no admin exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			if username == "" {
				username = os.Getenv("ADMIN_USERNAME")
			}
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			if username == "" || password == "" {
				return fmt.Errorf("username and password are required (flags or ADMIN_USERNAME/ADMIN_PASSWORD)")
			}

			store, err := openStorage()
			if err != nil {
				return err
			}
			defer store.Close()

			created, err := auth.SeedAdmin(cmd.Context(), store, username, password)
			if err != nil {
				return fmt.Errorf("seeding admin: %w", err)
			}
			if !created {
				fmt.Fprintln(cmd.OutOrStdout(), "an admin account already exists; nothing to do")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %q created\n", username)
			return nil
		},
	}

	cmd.Flags().String("username", "", "Admin username")
	cmd.Flags().String("password", "", "Admin password")

	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash of a password (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return fmt.Errorf("password must not be empty")
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
