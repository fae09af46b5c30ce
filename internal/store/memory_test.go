package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speettolab/speetto-monitor/internal/speetto"
)

func testReading(game speetto.Game, round, stockRate, first int) speetto.Reading {
	return speetto.Reading{
		Game:      game,
		Round:     round,
		AsOf:      time.Date(2025, 9, 17, 0, 0, 0, 0, time.UTC),
		StockRate: stockRate,
		First:     speetto.PrizeTier{Amount: "5억원", Remaining: first},
		Second:    speetto.PrizeTier{Amount: "2천만원", Remaining: 15},
		Third:     speetto.PrizeTier{Amount: "1만원", Remaining: 25000},
	}
}

func TestMemoryLatestStatusRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	r := testReading(speetto.Speetto1000, 99, 100, 3)
	require.NoError(t, s.UpsertReading(ctx, r))

	status, err := s.LatestStatus(ctx)
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.Equal(t, r, status[speetto.Speetto1000])
}

func TestMemoryLatestStatusMostRecentPerGame(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.UpsertReading(ctx, testReading(speetto.Speetto1000, 98, 100, 1)))
	require.NoError(t, s.UpsertReading(ctx, testReading(speetto.Speetto1000, 99, 14, 2)))
	require.NoError(t, s.UpsertReading(ctx, testReading(speetto.Speetto2000, 61, 95, 0)))

	// Re-persisting an older round makes it the latest observation.
	updated := testReading(speetto.Speetto1000, 98, 100, 0)
	require.NoError(t, s.UpsertReading(ctx, updated))

	status, err := s.LatestStatus(ctx)
	require.NoError(t, err)
	require.Len(t, status, 2)
	assert.Equal(t, updated, status[speetto.Speetto1000])
	assert.Equal(t, 61, status[speetto.Speetto2000].Round)
}

func TestMemoryHasSentTodayOnlySentBlocks(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	day := time.Date(2025, 9, 19, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.AppendNotification(ctx, NotificationRecord{
		Phone: "01067790104", Game: speetto.Speetto1000, Round: 99,
		SentAt: day, Outcome: OutcomeFailed,
	}))

	sent, err := s.HasSentToday(ctx, "01067790104", speetto.Speetto1000, 99, day)
	require.NoError(t, err)
	assert.False(t, sent, "failed attempts must not block a retry")

	require.NoError(t, s.AppendNotification(ctx, NotificationRecord{
		Phone: "01067790104", Game: speetto.Speetto1000, Round: 99,
		SentAt: day.Add(time.Hour), Outcome: OutcomeSent,
	}))

	sent, err = s.HasSentToday(ctx, "01067790104", speetto.Speetto1000, 99, day)
	require.NoError(t, err)
	assert.True(t, sent)

	// Different round, different day, different phone: all unaffected.
	sent, _ = s.HasSentToday(ctx, "01067790104", speetto.Speetto1000, 100, day)
	assert.False(t, sent)
	sent, _ = s.HasSentToday(ctx, "01067790104", speetto.Speetto1000, 99, day.AddDate(0, 0, 1))
	assert.False(t, sent)
	sent, _ = s.HasSentToday(ctx, "01000000000", speetto.Speetto1000, 99, day)
	assert.False(t, sent)
}

func TestMemoryRecentNotificationsOrderAndBound(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	base := time.Date(2025, 9, 19, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendNotification(ctx, NotificationRecord{
			Phone: "01067790104", Game: speetto.Speetto1000, Round: 95 + i,
			SentAt: base.Add(time.Duration(i) * time.Minute), Outcome: OutcomeSent,
		}))
	}

	records, err := s.RecentNotifications(ctx, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, 99, records[0].Round)
	assert.Equal(t, 98, records[1].Round)
	assert.Equal(t, 97, records[2].Round)
}

func TestMemoryRecipientsFor(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.UpsertRecipient(ctx, Recipient{
		Phone: "01011112222", Games: []speetto.Game{speetto.Speetto1000}, Active: true,
	}))
	require.NoError(t, s.UpsertRecipient(ctx, Recipient{
		Phone: "01033334444", Games: speetto.AllGames, Active: true,
	}))
	require.NoError(t, s.UpsertRecipient(ctx, Recipient{
		Phone: "01055556666", Games: speetto.AllGames, Active: false,
	}))

	recipients, err := s.RecipientsFor(ctx, speetto.Speetto2000)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "01033334444", recipients[0].Phone)

	recipients, err = s.RecipientsFor(ctx, speetto.Speetto1000)
	require.NoError(t, err)
	assert.Len(t, recipients, 2)
}
