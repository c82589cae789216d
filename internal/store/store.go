// Package store persists the booking job's state and attempt history in
// Postgres.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/example/appt-booker/internal/db"
)

// State is the single booking job's persistent state. One row, updated in
// place.
type State struct {
	Active              bool
	ConsecutiveFailures int
	LastAttemptAt       *time.Time
	LastReason          *string
	BookedSlot          *string
	BookedAt            *time.Time
	UpdatedAt           time.Time
}

// Attempt is one historical attempt record.
type Attempt struct {
	ID          int64
	AttemptedAt time.Time
	Reason      string
	Slot        *string
	SeenSlots   []string
	Error       *string
}

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

func (r *Repo) State(ctx context.Context) (State, error) {
	var s State
	err := r.db.QueryRow(ctx, `
SELECT active, consecutive_failures, last_attempt_at, last_reason, booked_slot, booked_at, updated_at
FROM job_state WHERE id=1`).
		Scan(&s.Active, &s.ConsecutiveFailures, &s.LastAttemptAt, &s.LastReason, &s.BookedSlot, &s.BookedAt, &s.UpdatedAt)
	if err != nil {
		return State{}, db.WrapNotFound(err)
	}
	return s, nil
}

// SetActive switches the job on or off. Activation starts a fresh campaign:
// the failure counter and any previous booking are cleared.
func (r *Repo) SetActive(ctx context.Context, active bool) error {
	if active {
		return r.db.Exec(ctx, `
UPDATE job_state
SET active=TRUE, consecutive_failures=0, booked_slot=NULL, booked_at=NULL, updated_at=now()
WHERE id=1`)
	}
	return r.db.Exec(ctx, `UPDATE job_state SET active=FALSE, updated_at=now() WHERE id=1`)
}

// RecordAttempt appends one attempt and folds it into the job state. A booked
// attempt deactivates the job and resets the failure counter; anything else
// increments it. The new consecutive failure count is returned.
func (r *Repo) RecordAttempt(ctx context.Context, reason string, slot *string, seen []string, booked bool) (int, error) {
	if err := r.db.Exec(ctx, `
INSERT INTO attempts(reason, slot, seen_slots) VALUES ($1,$2,$3)`,
		reason, slot, joinSeen(seen)); err != nil {
		return 0, err
	}

	if booked {
		if err := r.db.Exec(ctx, `
UPDATE job_state
SET active=FALSE, consecutive_failures=0, last_attempt_at=now(), last_reason=$1,
    booked_slot=$2, booked_at=now(), updated_at=now()
WHERE id=1`, reason, slot); err != nil {
			return 0, err
		}
		return 0, nil
	}

	var failures int
	err := r.db.QueryRow(ctx, `
UPDATE job_state
SET consecutive_failures=consecutive_failures+1, last_attempt_at=now(), last_reason=$1, updated_at=now()
WHERE id=1
RETURNING consecutive_failures`, reason).Scan(&failures)
	return failures, db.WrapNotFound(err)
}

// RecordError appends a failed attempt that never produced an outcome, e.g. a
// crashed browser, and increments the failure counter.
func (r *Repo) RecordError(ctx context.Context, message string) (int, error) {
	if err := r.db.Exec(ctx, `
INSERT INTO attempts(reason, error) VALUES ('error', $1)`, message); err != nil {
		return 0, err
	}

	var failures int
	err := r.db.QueryRow(ctx, `
UPDATE job_state
SET consecutive_failures=consecutive_failures+1, last_attempt_at=now(), last_reason='error', updated_at=now()
WHERE id=1
RETURNING consecutive_failures`).Scan(&failures)
	return failures, db.WrapNotFound(err)
}

// RecentAttempts lists the newest attempts first.
func (r *Repo) RecentAttempts(ctx context.Context, limit int) ([]Attempt, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, attempted_at, reason, slot, seen_slots, error
FROM attempts
ORDER BY attempted_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		var seen *string
		if err := rows.Scan(&a.ID, &a.AttemptedAt, &a.Reason, &a.Slot, &seen, &a.Error); err != nil {
			return nil, err
		}
		a.SeenSlots = splitSeen(seen)
		out = append(out, a)
	}
	return out, rows.Err()
}

func joinSeen(seen []string) *string {
	if len(seen) == 0 {
		return nil
	}
	s := strings.Join(seen, "\n")
	return &s
}

func splitSeen(s *string) []string {
	if s == nil || *s == "" {
		return nil
	}
	return strings.Split(*s, "\n")
}
