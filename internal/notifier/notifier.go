// Package notifier emails the operator when attempts keep failing or when a
// booking lands.
package notifier

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"github.com/example/appt-booker/internal/config"
)

// ShouldNotify reports whether a failure email is due. To keep the noise
// down, only every third consecutive failure triggers one.
func ShouldNotify(consecutiveFailures int) bool {
	return consecutiveFailures > 0 && consecutiveFailures%3 == 0
}

// Mailer sends notification emails over SMTP.
type Mailer struct {
	cfg config.EmailConfig
}

func New(cfg config.EmailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// NotifyFailure reports a run of consecutive failed attempts, listing what
// was available so the operator can loosen the preferences.
func (m *Mailer) NotifyFailure(failures int, reason string, seen []string) error {
	subject := fmt.Sprintf("Appointment booking failing (%d attempts)", failures)

	var b strings.Builder
	fmt.Fprintf(&b, "The booking job has failed %d times in a row.\n\nLast result: %s\n", failures, reason)
	if len(seen) > 0 {
		b.WriteString("\nSlots seen on the last attempt:\n")
		for _, s := range seen {
			fmt.Fprintf(&b, "  - %s\n", s)
		}
		b.WriteString("\nConsider widening the preference list.\n")
	} else {
		b.WriteString("\nNo slots were visible on the last attempt.\n")
	}

	return m.send(subject, b.String())
}

// NotifyBooked reports a successful booking.
func (m *Mailer) NotifyBooked(slotText string) error {
	body := fmt.Sprintf("Booked: %s\n\nThe job has been deactivated.\n", slotText)
	return m.send("Appointment booked", body)
}

func (m *Mailer) send(subject, body string) error {
	mail := email.NewEmail()
	mail.From = m.cfg.From
	mail.To = m.cfg.To
	mail.Subject = subject
	mail.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTP.Host, m.cfg.SMTP.Port)
	err := mail.Send(addr, smtp.PlainAuth("", m.cfg.SMTP.Username, m.cfg.SMTP.Password, m.cfg.SMTP.Host))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}
