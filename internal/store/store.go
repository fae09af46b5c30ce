// Package store persists readings, recipients, and the notification log.
//
// The notification log is append-only and doubles as the source of truth
// for the daily dedup check: only records with outcome "sent" suppress
// further alerts for the same (phone, game, round, day).
package store

import (
	"context"
	"time"

	"github.com/speettolab/speetto-monitor/internal/speetto"
)

// Outcome is the result of one delivery attempt.
type Outcome string

const (
	OutcomeSent   Outcome = "sent"
	OutcomeFailed Outcome = "failed"
)

// Recipient is one phone number with its game subscriptions.
type Recipient struct {
	Phone  string
	Games  []speetto.Game
	Active bool
}

// Subscribed reports whether the recipient follows a game.
func (r Recipient) Subscribed(g speetto.Game) bool {
	for _, game := range r.Games {
		if game == g {
			return true
		}
	}
	return false
}

// NotificationRecord is one delivery attempt outcome, audit log and dedup
// state in one.
type NotificationRecord struct {
	Phone   string
	Game    speetto.Game
	Round   int
	Message string
	SentAt  time.Time
	Outcome Outcome
}

// Store is the alert-state contract the monitor runs against.
type Store interface {
	// UpsertReading persists the latest reading for (game, round),
	// replacing any previous observation of the same round.
	UpsertReading(ctx context.Context, r speetto.Reading) error

	// HasSentToday reports whether a sent record exists for the exact
	// (phone, game, round) key on the given calendar day. Failed attempts
	// do not count.
	HasSentToday(ctx context.Context, phone string, game speetto.Game, round int, day time.Time) (bool, error)

	// AppendNotification appends one delivery attempt outcome.
	AppendNotification(ctx context.Context, rec NotificationRecord) error

	// RecipientsFor returns active recipients subscribed to a game.
	RecipientsFor(ctx context.Context, game speetto.Game) ([]Recipient, error)

	// LatestStatus returns the most recently persisted reading per game.
	LatestStatus(ctx context.Context) (map[speetto.Game]speetto.Reading, error)

	// RecentNotifications returns up to limit records, most recent first.
	RecentNotifications(ctx context.Context, limit int) ([]NotificationRecord, error)

	// UpsertRecipient creates or updates a recipient row, so adding a
	// recipient is configuration, not a code change.
	UpsertRecipient(ctx context.Context, r Recipient) error
}
