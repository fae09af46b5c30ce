package store

import (
	"context"
	"sync"
	"time"

	"github.com/speettolab/speetto-monitor/internal/speetto"
)

// Memory is an in-process Store for tests and local development. Safe for
// concurrent use.
type Memory struct {
	mu         sync.RWMutex
	seq        int
	readings   map[readingKey]memoryReading
	log        []NotificationRecord
	recipients map[string]Recipient
}

type readingKey struct {
	Game  speetto.Game
	Round int
}

type memoryReading struct {
	reading speetto.Reading
	seq     int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		readings:   make(map[readingKey]memoryReading),
		recipients: make(map[string]Recipient),
	}
}

var _ Store = (*Memory)(nil)

func (s *Memory) UpsertReading(_ context.Context, r speetto.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.readings[readingKey{r.Game, r.Round}] = memoryReading{reading: r, seq: s.seq}
	return nil
}

func (s *Memory) HasSentToday(_ context.Context, phone string, game speetto.Game, round int, day time.Time) (bool, error) {
	target := speetto.DateOnly(day)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.log {
		if rec.Outcome == OutcomeSent &&
			rec.Phone == phone && rec.Game == game && rec.Round == round &&
			speetto.DateOnly(rec.SentAt).Equal(target) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Memory) AppendNotification(_ context.Context, rec NotificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, rec)
	return nil
}

func (s *Memory) RecipientsFor(_ context.Context, game speetto.Game) ([]Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Recipient
	for _, r := range s.recipients {
		if r.Active && r.Subscribed(game) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Memory) LatestStatus(_ context.Context) (map[speetto.Game]speetto.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	latest := make(map[speetto.Game]memoryReading)
	for key, mr := range s.readings {
		if cur, ok := latest[key.Game]; !ok || mr.seq > cur.seq {
			latest[key.Game] = mr
		}
	}
	status := make(map[speetto.Game]speetto.Reading, len(latest))
	for game, mr := range latest {
		status[game] = mr.reading
	}
	return status, nil
}

func (s *Memory) RecentNotifications(_ context.Context, limit int) ([]NotificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.log)
	if limit > n {
		limit = n
	}
	out := make([]NotificationRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.log[i])
	}
	return out, nil
}

func (s *Memory) UpsertRecipient(_ context.Context, r Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipients[r.Phone] = r
	return nil
}

// Notifications returns a copy of the full log in append order. Test helper.
func (s *Memory) Notifications() []NotificationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]NotificationRecord, len(s.log))
	copy(out, s.log)
	return out
}
