package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/appt-booker/internal/booking"
	"github.com/example/appt-booker/internal/browser"
	"github.com/example/appt-booker/internal/config"
	"github.com/example/appt-booker/internal/page"
)

func newRunCmd() *cobra.Command {
	var (
		dryRun   bool
		debugDir string
		headful  bool
	)

	c := &cobra.Command{
		Use:   "run",
		Short: "Run one discovery-and-booking attempt now (no database needed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if headful {
				cfg.Browser.Headful = true
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			out, err := attempt(ctx, cfg, dryRun, debugDir)
			if err != nil {
				return err
			}

			printOutcome(out)
			return nil
		},
	}

	c.Flags().BoolVar(&dryRun, "dry-run", false, "find and report the matching slot without booking it")
	c.Flags().StringVar(&debugDir, "debug", "", "write HTML and screenshot snapshots into this directory")
	c.Flags().BoolVar(&headful, "headful", false, "show the browser window")
	return c
}

// attempt runs one full discovery-and-booking attempt with a fresh browser.
func attempt(ctx context.Context, cfg *config.Config, dryRun bool, debugDir string) (booking.Outcome, error) {
	br, err := browser.Launch(browser.Options{Headless: !cfg.Browser.Headful})
	if err != nil {
		return booking.Outcome{}, err
	}
	defer br.Close()

	p, err := br.NewPage()
	if err != nil {
		return booking.Outcome{}, err
	}

	var obs page.Observer
	if debugDir != "" {
		obs = &page.FileObserver{Dir: debugDir}
	}

	svc := &booking.Service{
		Page:        p,
		Observer:    obs,
		BookingURL:  cfg.Booking.URL,
		Preferences: cfg.Booking.Preferences,
		User: booking.UserInfo{
			FirstName: cfg.User.FirstName,
			LastName:  cfg.User.LastName,
			Email:     cfg.User.Email,
			Phone:     cfg.User.Phone,
		},
		Horizon: cfg.Booking.SearchHorizon,
		DryRun:  dryRun,
	}

	out, err := svc.Attempt(ctx)
	if err != nil {
		// the service already released the page
		return booking.Outcome{}, err
	}
	_ = p.Close(ctx)
	return out, nil
}

func printOutcome(out booking.Outcome) {
	switch out.Reason {
	case booking.ReasonBooked:
		if out.DryRun {
			fmt.Printf("dry run: would book %s\n", out.Slot.DisplayText)
		} else {
			fmt.Printf("booked %s\n", out.Slot.DisplayText)
		}
	case booking.ReasonBookingFailed:
		fmt.Printf("found %s but the booking did not go through\n", out.Slot.DisplayText)
	case booking.ReasonNoMatch:
		fmt.Println("no slot matched the preferences")
	case booking.ReasonNoSlots:
		fmt.Println("no slots found")
	}
	if len(out.Seen) > 0 {
		fmt.Printf("slots seen (%d):\n", len(out.Seen))
		for _, s := range out.Seen {
			fmt.Printf("  %s\n", s)
		}
	}
}
