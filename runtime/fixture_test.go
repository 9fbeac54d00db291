package runtime

import (
	"chat-presence/moderation"
	"chat-presence/observability"
	"chat-presence/repositories"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	at time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{at: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = c.at.Add(d)
}

type engine struct {
	registry     *Registry
	store        *MessageStore
	participants *repositories.ParticipantRepository
	clock        *fakeClock
	metrics      *observability.Metrics
}

func newTestEngine(t *testing.T) engine {
	t.Helper()
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	messages, err := repositories.NewMessageRepository(db, slog.Default())
	req.NoError(err)
	t.Cleanup(func() { _ = messages.Close() })

	clock := newFakeClock()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	sanitizer := moderation.NewSanitizer(nil)
	participants := repositories.NewParticipantRepository(db)
	store := NewMessageStore(slog.Default(), messages, sanitizer, metrics, clock.Now)
	registry := NewRegistry(slog.Default(), participants, store, sanitizer, metrics, clock.Now)
	return engine{registry: registry, store: store, participants: participants, clock: clock, metrics: metrics}
}
