package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/appt-booker/internal/auth"
	"github.com/example/appt-booker/internal/booking"
	"github.com/example/appt-booker/internal/config"
	"github.com/example/appt-booker/internal/db"
	"github.com/example/appt-booker/internal/migrate"
	"github.com/example/appt-booker/internal/notifier"
	"github.com/example/appt-booker/internal/scheduler"
	"github.com/example/appt-booker/internal/store"
	"github.com/example/appt-booker/internal/web"
)

func newServeCmd() *cobra.Command {
	var migrateUp bool

	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI + daily attempt scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			srv, err := config.ServerFromEnv()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			d, err := db.Open(ctx, srv.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.Ping(ctx); err != nil {
				return fmt.Errorf("db ping: %w", err)
			}

			if migrateUp {
				if err := migrate.Up(ctx, d); err != nil {
					return err
				}
			}

			authStore := auth.NewStore(d, srv.CookieHashKey, srv.CookieBlockKey)
			repo := store.NewRepo(d)

			var mailer *notifier.Mailer
			if cfg.Notify() {
				mailer = notifier.New(cfg.Email)
			}

			hour, minute, err := cfg.Schedule.Clock()
			if err != nil {
				return err
			}
			loc, err := cfg.Schedule.Location()
			if err != nil {
				return err
			}

			s := &scheduler.Scheduler{
				Store:  repo,
				Mailer: mailer,
				Attempt: func(ctx context.Context) (booking.Outcome, error) {
					return attempt(ctx, cfg, false, "")
				},
				Hour:     hour,
				Minute:   minute,
				Location: loc,
			}
			go func() { _ = s.Run(ctx) }()

			ws := &web.Server{Auth: authStore, Store: repo, Cfg: cfg}
			return web.Start(ctx, srv.ListenAddr, ws.Routes())
		},
	}

	c.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	c.Flags().Lookup("migrate").NoOptDefVal = "true"
	return c
}
