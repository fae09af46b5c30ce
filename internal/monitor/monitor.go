// Package monitor runs the fetch → extract → evaluate → notify pipeline.
//
// One run: fetch the source page (or substitute fallback readings), then per
// game sequentially persist the reading, evaluate the alert rule, and notify
// subscribed recipients not yet alerted today. One game's failure never
// blocks the next game.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/speettolab/speetto-monitor/internal/sms"
	"github.com/speettolab/speetto-monitor/internal/source"
	"github.com/speettolab/speetto-monitor/internal/speetto"
	"github.com/speettolab/speetto-monitor/internal/store"
)

// Fetcher fetches raw source page markup.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// Notifier delivers one alert message.
type Notifier interface {
	Send(ctx context.Context, m sms.Message) sms.Result
}

// Monitor orchestrates monitoring runs. Runs serialize on an internal mutex:
// the dedup check-then-notify-then-record sequence must not interleave with
// itself, and the schedule ticker may race a manual check-now trigger.
type Monitor struct {
	mu          sync.Mutex
	fetcher     Fetcher
	store       store.Store
	notifier    Notifier
	senderPhone string
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a Monitor. notifier may wrap a nil sms.Client; delivery then
// fails fast per recipient while readings are still persisted.
func New(fetcher Fetcher, st store.Store, notifier Notifier, senderPhone string, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		fetcher:     fetcher,
		store:       st,
		notifier:    notifier,
		senderPhone: senderPhone,
		logger:      logger,
		now:         time.Now,
	}
}

// Run executes one monitoring pass and returns its summary. Never panics;
// all failures land in the result.
func (m *Monitor) Run(ctx context.Context) RunResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	now := m.now()
	var result RunResult

	readings, usedFallback, err := m.fetchReadings(ctx, now)
	if err != nil {
		result.Outcome = RunFatal
		result.AddErrorf("fetch: %v", err)
		result.DurationMS = time.Since(start).Milliseconds()
		m.logger.Error("monitoring run failed", "error", err)
		return result
	}
	result.UsedFallback = usedFallback
	result.GamesChecked = len(readings)

	for _, reading := range readings {
		fatal, err := m.processReading(ctx, reading, now, &result)
		if err != nil {
			result.AddErrorf("%s round %d: %v", reading.Game, reading.Round, err)
		}
		if fatal {
			result.Outcome = RunFatal
			result.DurationMS = time.Since(start).Milliseconds()
			m.logger.Error("monitoring run aborted", "summary", result.Summary())
			return result
		}
	}

	result.Outcome = RunSuccess
	if len(result.Errors) > 0 {
		result.Outcome = RunPartial
	}
	result.DurationMS = time.Since(start).Milliseconds()
	m.logger.Info("monitoring run finished", "summary", result.Summary())
	return result
}

// fetchReadings fetches and extracts the current readings, substituting the
// fallback set when the fetch fails or the page yields nothing. Only run
// cancellation is fatal.
func (m *Monitor) fetchReadings(ctx context.Context, now time.Time) ([]speetto.Reading, bool, error) {
	raw, err := m.fetcher.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		m.logger.Warn("source fetch failed, using fallback readings", "error", err)
		return source.FallbackReadings(now), true, nil
	}

	readings := speetto.Extract(raw, now)
	if len(readings) == 0 {
		m.logger.Warn("extraction yielded no readings, using fallback readings")
		return source.FallbackReadings(now), true, nil
	}
	return readings, false, nil
}

// processReading handles one game's reading. The returned error is a
// per-game error to collect; fatal=true means the store itself is unusable
// and the run must stop.
func (m *Monitor) processReading(ctx context.Context, r speetto.Reading, now time.Time, result *RunResult) (fatal bool, err error) {
	if err := m.store.UpsertReading(ctx, r); err != nil {
		// Reading lost for this run; skip notification so the dedup state
		// and readings never diverge.
		return false, fmt.Errorf("persist reading: %w", err)
	}

	if !speetto.IsAlertEligible(r) {
		m.logger.Debug("alert condition not met",
			"game", r.Game, "round", r.Round,
			"stock_rate", r.StockRate, "first_remaining", r.First.Remaining)
		return false, nil
	}

	recipients, err := m.store.RecipientsFor(ctx, r.Game)
	if err != nil {
		return true, fmt.Errorf("lookup recipients: %w", err)
	}
	if len(recipients) == 0 {
		return false, nil
	}

	m.logger.Info("alert condition met",
		"game", r.Game, "round", r.Round,
		"stock_rate", r.StockRate, "first_remaining", r.First.Remaining,
		"recipients", len(recipients))

	var firstErr error
	for _, rcpt := range recipients {
		sent, err := m.notifyRecipient(ctx, rcpt, r, now)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if sent {
			result.AlertsSent++
		}
	}
	return false, firstErr
}

// notifyRecipient sends one alert unless a successful one already went out
// today for the same (phone, game, round). The outcome is always appended to
// the notification log; failed attempts stay retryable on later runs.
func (m *Monitor) notifyRecipient(ctx context.Context, rcpt store.Recipient, r speetto.Reading, now time.Time) (bool, error) {
	already, err := m.store.HasSentToday(ctx, rcpt.Phone, r.Game, r.Round, now)
	if err != nil {
		return false, fmt.Errorf("dedup check for %s: %w", rcpt.Phone, err)
	}
	if already {
		m.logger.Info("alert already sent today",
			"game", r.Game, "round", r.Round, "phone", rcpt.Phone)
		return false, nil
	}

	text := sms.BuildAlertMessage(r.Game, r.Round, r.StockRate, r.First.Remaining, now)
	res := m.notifier.Send(ctx, sms.Message{
		To:   rcpt.Phone,
		From: m.senderPhone,
		Text: text,
		Type: "LMS",
	})

	outcome := store.OutcomeSent
	if !res.Success {
		outcome = store.OutcomeFailed
	}
	rec := store.NotificationRecord{
		Phone:   rcpt.Phone,
		Game:    r.Game,
		Round:   r.Round,
		Message: text,
		SentAt:  now,
		Outcome: outcome,
	}
	if err := m.store.AppendNotification(ctx, rec); err != nil {
		return res.Success, fmt.Errorf("record outcome for %s: %w", rcpt.Phone, err)
	}

	if !res.Success {
		return false, fmt.Errorf("send to %s: %s", rcpt.Phone, res.ErrorMessage)
	}
	return true, nil
}
