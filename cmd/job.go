package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/appt-booker/internal/config"
	"github.com/example/appt-booker/internal/db"
	"github.com/example/appt-booker/internal/migrate"
	"github.com/example/appt-booker/internal/store"
)

func newJobCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "job",
		Short: "Control the booking job (non-UI)",
	}
	c.AddCommand(newJobActivateCmd())
	c.AddCommand(newJobDeactivateCmd())
	c.AddCommand(newJobStatusCmd())
	return c
}

func openRepo(ctx context.Context) (*store.Repo, *db.DB, error) {
	d, err := db.Open(ctx, config.DatabaseURL())
	if err != nil {
		return nil, nil, err
	}
	if err := migrate.Up(ctx, d); err != nil {
		d.Close()
		return nil, nil, err
	}
	return store.NewRepo(d), d, nil
}

func newJobActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate",
		Short: "Activate the job; the scheduler attempts daily until it books",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			repo, d, err := openRepo(ctx)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := repo.SetActive(ctx, true); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, "job activated")
			return nil
		},
	}
}

func newJobDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate",
		Short: "Deactivate the job",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			repo, d, err := openRepo(ctx)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := repo.SetActive(ctx, false); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, "job deactivated")
			return nil
		},
	}
}

func newJobStatusCmd() *cobra.Command {
	var limit int

	c := &cobra.Command{
		Use:   "status",
		Short: "Show the job state and recent attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			repo, d, err := openRepo(ctx)
			if err != nil {
				return err
			}
			defer d.Close()

			st, err := repo.State(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stdout, "active=%v consecutive_failures=%d\n", st.Active, st.ConsecutiveFailures)
			if st.LastAttemptAt != nil {
				fmt.Fprintf(os.Stdout, "last_attempt=%s result=%s\n", st.LastAttemptAt.Format(time.RFC3339), deref(st.LastReason))
			}
			if st.BookedSlot != nil {
				fmt.Fprintf(os.Stdout, "booked=%q at=%s\n", *st.BookedSlot, st.BookedAt.Format(time.RFC3339))
			}

			attempts, err := repo.RecentAttempts(ctx, limit)
			if err != nil {
				return err
			}
			for _, a := range attempts {
				fmt.Fprintf(os.Stdout, "%s  %-16s slot=%q seen=%d\n",
					a.AttemptedAt.Format(time.RFC3339), a.Reason, deref(a.Slot), len(a.SeenSlots))
			}
			return nil
		},
	}

	c.Flags().IntVar(&limit, "limit", 10, "number of attempts to show")
	return c
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
