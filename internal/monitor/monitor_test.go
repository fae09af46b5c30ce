package monitor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speettolab/speetto-monitor/internal/sms"
	"github.com/speettolab/speetto-monitor/internal/speetto"
	"github.com/speettolab/speetto-monitor/internal/store"
)

const (
	eligible1000Markup = `스피또1000 99회 안내사항 판매점 입고율 : 100% ` +
		`<strong>3</strong><strong>15</strong><strong>25,000</strong> 25-09-17 기준`
	ineligible1000Markup = `스피또1000 99회 안내사항 판매점 입고율 : 14% ` +
		`<strong>2</strong><strong>15</strong><strong>25,000</strong> 25-09-17 기준`
	ineligible2000Markup = `스피또2000 61회 안내사항 판매점 입고율 : 95% ` +
		`<strong>0</strong><strong>5</strong><strong>12,000</strong> 25-09-17 기준`
	eligible2000Markup = `스피또2000 61회 안내사항 판매점 입고율 : 100% ` +
		`<strong>4</strong><strong>5</strong><strong>12,000</strong> 25-09-17 기준`
)

var testRunTime = time.Date(2025, 9, 19, 12, 0, 0, 0, time.UTC)

// --------------------------------------------------------------------------
// Test doubles
// --------------------------------------------------------------------------

type stubFetcher struct {
	raw string
	err error
}

func (f stubFetcher) Fetch(context.Context) (string, error) { return f.raw, f.err }

type stubNotifier struct {
	fail bool
	sent []sms.Message
}

func (n *stubNotifier) Send(_ context.Context, m sms.Message) sms.Result {
	n.sent = append(n.sent, m)
	if n.fail {
		return sms.Result{ErrorMessage: "provider unavailable"}
	}
	return sms.Result{Success: true, MessageID: fmt.Sprintf("M%d", len(n.sent))}
}

// failingStore injects errors into an otherwise working store.
type failingStore struct {
	store.Store
	failUpsertFor  speetto.Game
	failRecipients bool
}

func (s *failingStore) UpsertReading(ctx context.Context, r speetto.Reading) error {
	if r.Game == s.failUpsertFor {
		return errors.New("disk full")
	}
	return s.Store.UpsertReading(ctx, r)
}

func (s *failingStore) RecipientsFor(ctx context.Context, g speetto.Game) ([]store.Recipient, error) {
	if s.failRecipients {
		return nil, errors.New("connection refused")
	}
	return s.Store.RecipientsFor(ctx, g)
}

// --------------------------------------------------------------------------
// Setup
// --------------------------------------------------------------------------

func newTestMonitor(t *testing.T, fetcher Fetcher, st store.Store, notifier Notifier) *Monitor {
	t.Helper()
	m := New(fetcher, st, notifier, "01012345678", nil)
	m.now = func() time.Time { return testRunTime }
	return m
}

func seededStore(t *testing.T) *store.Memory {
	t.Helper()
	s := store.NewMemory()
	require.NoError(t, s.UpsertRecipient(context.Background(), store.Recipient{
		Phone:  "01067790104",
		Games:  speetto.AllGames,
		Active: true,
	}))
	return s
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestRunEligibleSendsExactlyOncePerDay(t *testing.T) {
	st := seededStore(t)
	notifier := &stubNotifier{}
	m := newTestMonitor(t, stubFetcher{raw: eligible1000Markup + ineligible2000Markup}, st, notifier)

	result := m.Run(context.Background())
	assert.Equal(t, RunSuccess, result.Outcome)
	assert.Equal(t, 2, result.GamesChecked)
	assert.Equal(t, 1, result.AlertsSent)
	assert.False(t, result.UsedFallback)
	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0].Text, "스피또1000 99회")

	// Same day, unchanged eligible reading: dedup suppresses the second send.
	result = m.Run(context.Background())
	assert.Equal(t, RunSuccess, result.Outcome)
	assert.Equal(t, 0, result.AlertsSent)
	assert.Len(t, notifier.sent, 1)

	records := st.Notifications()
	require.Len(t, records, 1)
	assert.Equal(t, store.OutcomeSent, records[0].Outcome)
	assert.Equal(t, speetto.Speetto1000, records[0].Game)
	assert.Equal(t, 99, records[0].Round)
}

func TestRunNextDaySendsAgain(t *testing.T) {
	st := seededStore(t)
	notifier := &stubNotifier{}
	m := newTestMonitor(t, stubFetcher{raw: eligible1000Markup}, st, notifier)

	m.Run(context.Background())
	m.now = func() time.Time { return testRunTime.AddDate(0, 0, 1) }
	result := m.Run(context.Background())

	assert.Equal(t, 1, result.AlertsSent)
	assert.Len(t, st.Notifications(), 2)
}

func TestRunIneligiblePersistsWithoutAlert(t *testing.T) {
	st := seededStore(t)
	notifier := &stubNotifier{}
	m := newTestMonitor(t, stubFetcher{raw: ineligible1000Markup}, st, notifier)

	result := m.Run(context.Background())
	assert.Equal(t, RunSuccess, result.Outcome)
	assert.Equal(t, 0, result.AlertsSent)
	assert.Empty(t, notifier.sent)

	status, err := st.LatestStatus(context.Background())
	require.NoError(t, err)
	require.Contains(t, status, speetto.Speetto1000)
	assert.Equal(t, 14, status[speetto.Speetto1000].StockRate)
}

func TestRunFailedSendIsRetryableSameDay(t *testing.T) {
	st := seededStore(t)
	notifier := &stubNotifier{fail: true}
	m := newTestMonitor(t, stubFetcher{raw: eligible1000Markup}, st, notifier)

	result := m.Run(context.Background())
	assert.Equal(t, RunPartial, result.Outcome)
	assert.Equal(t, 0, result.AlertsSent)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "provider unavailable")

	records := st.Notifications()
	require.Len(t, records, 1)
	assert.Equal(t, store.OutcomeFailed, records[0].Outcome)

	// Provider recovers: only sent outcomes block, so the retry goes out.
	notifier.fail = false
	result = m.Run(context.Background())
	assert.Equal(t, RunSuccess, result.Outcome)
	assert.Equal(t, 1, result.AlertsSent)

	records = st.Notifications()
	require.Len(t, records, 2)
	assert.Equal(t, store.OutcomeSent, records[1].Outcome)
}

func TestRunFetchErrorUsesFallback(t *testing.T) {
	st := seededStore(t)
	notifier := &stubNotifier{}
	m := newTestMonitor(t, stubFetcher{err: errors.New("connection reset")}, st, notifier)

	result := m.Run(context.Background())
	assert.Equal(t, RunSuccess, result.Outcome)
	assert.True(t, result.UsedFallback)
	assert.Equal(t, 3, result.GamesChecked)
	// The fallback set contains one eligible round (스피또1000 98회).
	assert.Equal(t, 1, result.AlertsSent)
}

func TestRunEmptyExtractionUsesFallback(t *testing.T) {
	st := seededStore(t)
	m := newTestMonitor(t, stubFetcher{raw: "<html>점검 중</html>"}, st, &stubNotifier{})

	result := m.Run(context.Background())
	assert.True(t, result.UsedFallback)
	assert.Equal(t, 3, result.GamesChecked)
}

func TestRunOneGameFailureDoesNotBlockOthers(t *testing.T) {
	st := &failingStore{Store: seededStore(t), failUpsertFor: speetto.Speetto1000}
	notifier := &stubNotifier{}
	m := newTestMonitor(t, stubFetcher{raw: eligible1000Markup + eligible2000Markup}, st, notifier)

	result := m.Run(context.Background())
	assert.Equal(t, RunPartial, result.Outcome)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "speetto1000")

	// 스피또2000 still got its alert.
	assert.Equal(t, 1, result.AlertsSent)
	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0].Text, "스피또2000 61회")
}

func TestRunRecipientLookupFailureIsFatal(t *testing.T) {
	st := &failingStore{Store: seededStore(t), failRecipients: true}
	m := newTestMonitor(t, stubFetcher{raw: eligible1000Markup}, st, &stubNotifier{})

	result := m.Run(context.Background())
	assert.Equal(t, RunFatal, result.Outcome)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "lookup recipients")
}

func TestRunCancelledContextIsFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := newTestMonitor(t, stubFetcher{err: context.Canceled}, seededStore(t), &stubNotifier{})
	result := m.Run(ctx)
	assert.Equal(t, RunFatal, result.Outcome)
}

func TestRunUnconfiguredSMSStillPersists(t *testing.T) {
	st := seededStore(t)
	var nilClient *sms.Client
	m := newTestMonitor(t, stubFetcher{raw: eligible1000Markup}, st, nilClient)

	result := m.Run(context.Background())
	assert.Equal(t, RunPartial, result.Outcome)
	assert.Equal(t, 0, result.AlertsSent)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "not configured")

	status, err := st.LatestStatus(context.Background())
	require.NoError(t, err)
	assert.Contains(t, status, speetto.Speetto1000)
}
