package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/appt-booker/internal/auth"
	"github.com/example/appt-booker/internal/config"
	"github.com/example/appt-booker/internal/db"
	"github.com/example/appt-booker/internal/migrate"
)

func newUserCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "user",
		Short: "Manage web UI users",
	}
	c.AddCommand(newUserAddCmd())
	return c
}

func newUserAddCmd() *cobra.Command {
	var email, password string

	c := &cobra.Command{
		Use:   "add",
		Short: "Add a web UI user (email/password)",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := config.ServerFromEnv()
			if err != nil {
				return err
			}

			ctx := context.Background()
			d, err := db.Open(ctx, srv.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := migrate.Up(ctx, d); err != nil {
				return err
			}

			store := auth.NewStore(d, srv.CookieHashKey, srv.CookieBlockKey)
			if err := store.CreateUser(ctx, email, password); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "created user %q\n", email)
			return nil
		},
	}

	c.Flags().StringVar(&email, "email", "", "login email")
	c.Flags().StringVar(&password, "password", "", "password")
	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("password")
	return c
}
