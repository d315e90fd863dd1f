package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/PratikDhanave/line-webhook-service/internal/models"
)

// DefaultTTL bounds how long the in-memory journal remembers an event id.
const DefaultTTL = 10 * time.Minute

// MemoryJournal remembers webhook event ids for a fixed TTL. It is the
// default journal when no database is configured.
type MemoryJournal struct {
	mu   sync.Mutex
	seen map[string]time.Time // id -> expiry
	ttl  time.Duration
	Now  func() time.Time
}

func NewMemoryJournal(ttl time.Duration) *MemoryJournal {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryJournal{
		seen: map[string]time.Time{},
		ttl:  ttl,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Record returns first=false if event's id was recorded within the TTL.
func (j *MemoryJournal) Record(_ context.Context, event models.Event) (bool, error) {
	if event.WebhookEventID == "" {
		return false, errors.New("webhook event id required")
	}
	now := j.Now()

	j.mu.Lock()
	defer j.mu.Unlock()

	j.evictExpiredLocked(now)
	if _, ok := j.seen[event.WebhookEventID]; ok {
		return false, nil
	}
	j.seen[event.WebhookEventID] = now.Add(j.ttl)
	return true, nil
}

// Ping always succeeds; it lets the journal stand in for readiness checks.
func (j *MemoryJournal) Ping(context.Context) error { return nil }

// Len returns the number of ids currently remembered.
func (j *MemoryJournal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.seen)
}

// Run evicts expired ids every interval until ctx is done, so an idle
// journal does not hold memory until the next Record.
func (j *MemoryJournal) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := j.Now()
			j.mu.Lock()
			j.evictExpiredLocked(now)
			j.mu.Unlock()
		}
	}
}

func (j *MemoryJournal) evictExpiredLocked(now time.Time) {
	for id, expiry := range j.seen {
		if !now.Before(expiry) {
			delete(j.seen, id)
		}
	}
}
