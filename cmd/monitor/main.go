// Command monitor is the Speetto monitoring CLI.
//
// Usage:
//
//	speetto-monitor check
//	speetto-monitor status
//	speetto-monitor logs --limit 20
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/speettolab/speetto-monitor/internal/config"
	"github.com/speettolab/speetto-monitor/internal/db"
	"github.com/speettolab/speetto-monitor/internal/monitor"
	"github.com/speettolab/speetto-monitor/internal/sms"
	"github.com/speettolab/speetto-monitor/internal/source"
	"github.com/speettolab/speetto-monitor/internal/speetto"
	"github.com/speettolab/speetto-monitor/internal/store"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "speetto-monitor",
		Short: "Speetto stock/prize monitoring CLI",
	}

	root.AddCommand(checkCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(logsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// check command
// --------------------------------------------------------------------------

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one monitoring pass now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, cfg *config.Config, st *store.Postgres) error {
				if err := st.UpsertRecipient(ctx, store.Recipient{
					Phone:  cfg.RecipientPhone,
					Games:  speetto.AllGames,
					Active: true,
				}); err != nil {
					return fmt.Errorf("seed recipient: %w", err)
				}

				smsClient := sms.NewClient(sms.DefaultBaseURL, cfg.SolapiAPIKey, cfg.SolapiSecretKey, cfg.SendTimeout, logger)
				if smsClient == nil {
					logger.Warn("SMS delivery disabled (no SOLAPI credentials)")
				}
				fetcher := source.NewClient(cfg.SourceURL, cfg.FetchTimeout, logger)
				mon := monitor.New(fetcher, st, smsClient, cfg.SenderPhone, logger)

				start := time.Now()
				result := mon.Run(ctx)
				logger.Info("Check finished",
					"duration", time.Since(start).Round(time.Millisecond),
					"summary", result.Summary())
				for _, e := range result.Errors {
					logger.Error("run error", "error", e)
				}
				if result.Outcome == monitor.RunFatal {
					return fmt.Errorf("monitoring run failed")
				}
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// status command
// --------------------------------------------------------------------------

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the latest persisted reading per game",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, cfg *config.Config, st *store.Postgres) error {
				status, err := st.LatestStatus(ctx)
				if err != nil {
					return err
				}
				if len(status) == 0 {
					fmt.Println("no readings persisted yet")
					return nil
				}

				games := make([]speetto.Game, 0, len(status))
				for g := range status {
					games = append(games, g)
				}
				sort.Slice(games, func(i, j int) bool { return games[i] < games[j] })

				for _, g := range games {
					fmt.Println(speetto.FormatReading(status[g]))
					fmt.Println()
				}
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// logs command
// --------------------------------------------------------------------------

func logsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print recent notification attempts, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, cfg *config.Config, st *store.Postgres) error {
				records, err := st.RecentNotifications(ctx, limit)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Println("no notifications logged yet")
					return nil
				}
				for _, rec := range records {
					fmt.Printf("%s  %-7s %s %d회 → %s\n",
						rec.SentAt.Format("2006-01-02 15:04:05"),
						rec.Outcome, rec.Game.Label(), rec.Round, rec.Phone)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of log entries")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

func withStore(fn func(ctx context.Context, cfg *config.Config, st *store.Postgres) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, store.NewPostgres(pool))
}
