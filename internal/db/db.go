// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/speettolab/speetto-monitor/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers all statements the monitor and API
// layers use. Prepared statements eliminate parse overhead on every run.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Readings: one games row per (name, round), one current reading per round
		"upsert_game": `
			INSERT INTO ` + config.GamesTable + ` (name, round, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (name, round) DO UPDATE SET updated_at = NOW()
			RETURNING id`,
		"upsert_reading": `
			INSERT INTO ` + config.ReadingsTable + ` (
				game_id, as_of_date, store_instock_rate,
				first_prize_remaining, second_prize_remaining, third_prize_remaining,
				created_at
			) VALUES ($1, $2, $3, $4, $5, $6, NOW())
			ON CONFLICT (game_id) DO UPDATE SET
				as_of_date = EXCLUDED.as_of_date,
				store_instock_rate = EXCLUDED.store_instock_rate,
				first_prize_remaining = EXCLUDED.first_prize_remaining,
				second_prize_remaining = EXCLUDED.second_prize_remaining,
				third_prize_remaining = EXCLUDED.third_prize_remaining,
				created_at = NOW()`,

		// Status: most recent reading per game
		"latest_status": `
			SELECT DISTINCT ON (g.name)
				g.name, g.round, m.as_of_date, m.store_instock_rate,
				m.first_prize_remaining, m.second_prize_remaining, m.third_prize_remaining
			FROM ` + config.GamesTable + ` g
			JOIN ` + config.ReadingsTable + ` m ON m.game_id = g.id
			ORDER BY g.name, m.created_at DESC`,

		// Notification log
		"has_sent_today": `
			SELECT EXISTS (
				SELECT 1 FROM ` + config.NotificationLogTable + `
				WHERE phone_number = $1 AND game_name = $2 AND round = $3
				  AND sent_at::date = $4::date AND status = 'sent'
			)`,
		"append_notification": `
			INSERT INTO ` + config.NotificationLogTable + ` (
				phone_number, game_name, round, message, sent_at, status
			) VALUES ($1, $2, $3, $4, $5, $6)`,
		"recent_notifications": `
			SELECT phone_number, game_name, round, message, sent_at, status
			FROM ` + config.NotificationLogTable + `
			ORDER BY sent_at DESC
			LIMIT $1`,

		// Recipients
		"active_recipients": `
			SELECT phone_number, target_games, is_active
			FROM ` + config.RecipientsTable + `
			WHERE is_active = true`,
		"upsert_recipient": `
			INSERT INTO ` + config.RecipientsTable + ` (phone_number, target_games, is_active)
			VALUES ($1, $2, $3)
			ON CONFLICT (phone_number) DO UPDATE SET
				target_games = EXCLUDED.target_games,
				is_active = EXCLUDED.is_active`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
