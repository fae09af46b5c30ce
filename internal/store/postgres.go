package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/speettolab/speetto-monitor/internal/config"
	"github.com/speettolab/speetto-monitor/internal/db"
	"github.com/speettolab/speetto-monitor/internal/speetto"
)

// Postgres is the production Store backed by a pgx pool. All statements are
// prepared at connect time (see db.registerPreparedStatements).
type Postgres struct {
	pool *db.Pool
}

// NewPostgres creates a Postgres-backed store.
func NewPostgres(pool *db.Pool) *Postgres {
	return &Postgres{pool: pool}
}

var _ Store = (*Postgres)(nil)

// UpsertReading writes the games row for (name, round) and replaces that
// round's current reading.
func (s *Postgres) UpsertReading(ctx context.Context, r speetto.Reading) error {
	var gameID int
	if err := s.pool.QueryRow(ctx, "upsert_game", string(r.Game), r.Round).Scan(&gameID); err != nil {
		return fmt.Errorf("upsert game %s round %d: %w", r.Game, r.Round, err)
	}

	_, err := s.pool.Exec(ctx, "upsert_reading",
		gameID, r.AsOf, r.StockRate,
		r.First.Remaining, r.Second.Remaining, r.Third.Remaining,
	)
	if err != nil {
		return fmt.Errorf("upsert reading %s round %d: %w", r.Game, r.Round, err)
	}
	return nil
}

func (s *Postgres) HasSentToday(ctx context.Context, phone string, game speetto.Game, round int, day time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "has_sent_today",
		phone, string(game), round, speetto.DateOnly(day),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("dedup lookup %s round %d: %w", game, round, err)
	}
	return exists, nil
}

func (s *Postgres) AppendNotification(ctx context.Context, rec NotificationRecord) error {
	_, err := s.pool.Exec(ctx, "append_notification",
		rec.Phone, string(rec.Game), rec.Round, rec.Message, rec.SentAt, string(rec.Outcome),
	)
	if err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	return nil
}

func (s *Postgres) RecipientsFor(ctx context.Context, game speetto.Game) ([]Recipient, error) {
	rows, err := s.pool.Query(ctx, "active_recipients")
	if err != nil {
		return nil, fmt.Errorf("query recipients: %w", err)
	}
	defer rows.Close()

	var recipients []Recipient
	for rows.Next() {
		var (
			phone    string
			rawGames []byte
			active   bool
		)
		if err := rows.Scan(&phone, &rawGames, &active); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}

		var names []string
		if err := json.Unmarshal(rawGames, &names); err != nil {
			// A malformed subscription row should not block other recipients.
			continue
		}
		r := Recipient{Phone: phone, Active: active}
		for _, n := range names {
			r.Games = append(r.Games, speetto.Game(n))
		}
		if r.Subscribed(game) {
			recipients = append(recipients, r)
		}
	}
	return recipients, rows.Err()
}

func (s *Postgres) LatestStatus(ctx context.Context) (map[speetto.Game]speetto.Reading, error) {
	rows, err := s.pool.Query(ctx, "latest_status")
	if err != nil {
		return nil, fmt.Errorf("query latest status: %w", err)
	}
	defer rows.Close()

	status := make(map[speetto.Game]speetto.Reading)
	for rows.Next() {
		var (
			name string
			r    speetto.Reading
		)
		if err := rows.Scan(&name, &r.Round, &r.AsOf, &r.StockRate,
			&r.First.Remaining, &r.Second.Remaining, &r.Third.Remaining); err != nil {
			return nil, fmt.Errorf("scan status row: %w", err)
		}
		r.Game = speetto.Game(name)
		r.AsOf = speetto.DateOnly(r.AsOf)

		// Prize amounts are fixed per game, not stored.
		gc := config.GameRegistry[name]
		r.First.Amount = gc.FirstPrize
		r.Second.Amount = gc.SecondPrize
		r.Third.Amount = gc.ThirdPrize

		status[r.Game] = r
	}
	return status, rows.Err()
}

func (s *Postgres) RecentNotifications(ctx context.Context, limit int) ([]NotificationRecord, error) {
	rows, err := s.pool.Query(ctx, "recent_notifications", limit)
	if err != nil {
		return nil, fmt.Errorf("query notification log: %w", err)
	}
	defer rows.Close()

	var records []NotificationRecord
	for rows.Next() {
		var (
			rec  NotificationRecord
			name string
			out  string
		)
		if err := rows.Scan(&rec.Phone, &name, &rec.Round, &rec.Message, &rec.SentAt, &out); err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		rec.Game = speetto.Game(name)
		rec.Outcome = Outcome(out)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Postgres) UpsertRecipient(ctx context.Context, r Recipient) error {
	names := make([]string, 0, len(r.Games))
	for _, g := range r.Games {
		names = append(names, string(g))
	}
	rawGames, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("encode subscriptions: %w", err)
	}

	if _, err := s.pool.Exec(ctx, "upsert_recipient", r.Phone, rawGames, r.Active); err != nil {
		return fmt.Errorf("upsert recipient: %w", err)
	}
	return nil
}
