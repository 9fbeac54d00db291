package workers

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/mocks"
	"chat-presence/moderation"
	"chat-presence/observability"
	"chat-presence/repositories"
	"chat-presence/runtime"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	sweepInterval = 15 * time.Second
	staleAfter    = 10 * time.Second
)

type clock struct {
	mu sync.Mutex
	at time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = c.at.Add(d)
}

type room struct {
	registry *runtime.Registry
	store    *runtime.MessageStore
	sweeper  *SweeperWorker
	clock    *clock
	metrics  *observability.Metrics
}

func newRoom(t *testing.T) room {
	t.Helper()
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	messages, err := repositories.NewMessageRepository(db, slog.Default())
	req.NoError(err)
	t.Cleanup(func() { _ = messages.Close() })

	c := &clock{at: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	sanitizer := moderation.NewSanitizer(nil)
	store := runtime.NewMessageStore(slog.Default(), messages, sanitizer, metrics, c.Now)
	registry := runtime.NewRegistry(slog.Default(), repositories.NewParticipantRepository(db),
		store, sanitizer, metrics, c.Now)
	sweeper := NewSweeperWorker(slog.Default(), registry, metrics, c.Now, sweepInterval, staleAfter)
	return room{registry: registry, store: store, sweeper: sweeper, clock: c, metrics: metrics}
}

func statusesOf(t *testing.T, store *runtime.MessageStore, name string) []string {
	t.Helper()
	messages, err := store.Query(context.Background(), "observer", nil)
	require.NoError(t, err)
	var statuses []string
	for _, m := range messages {
		if m.Kind == domain.KindStatus && m.From == name {
			statuses = append(statuses, m.Text)
		}
	}
	return statuses
}

func TestSweeper_Evicts_Silent_Participant(t *testing.T) {
	req := require.New(t)
	r := newRoom(t)
	ctx := context.Background()

	// Given alice joined and stayed silent for 11 seconds
	req.NoError(r.registry.Join(ctx, "alice"))
	r.clock.Advance(11 * time.Second)

	// When the sweeper runs
	evicted := r.sweeper.Sweep(ctx)

	// Then alice is removed and a left status follows the joined status
	req.Equal([]string{"alice"}, evicted)
	exists, err := r.registry.Exists(ctx, "alice")
	req.NoError(err)
	req.False(exists)
	req.Equal([]string{domain.StatusJoined, domain.StatusLeft}, statusesOf(t, r.store, "alice"))
	req.Equal(1.0, testutil.ToFloat64(r.metrics.ParticipantsEvicted))
	req.Equal(0.0, testutil.ToFloat64(r.metrics.ActiveParticipants))
}

func TestSweeper_Keeps_Participant_At_Threshold(t *testing.T) {
	req := require.New(t)
	r := newRoom(t)
	ctx := context.Background()
	req.NoError(r.registry.Join(ctx, "alice"))

	// Exactly the threshold is not stale
	r.clock.Advance(staleAfter)

	req.Empty(r.sweeper.Sweep(ctx))
	exists, err := r.registry.Exists(ctx, "alice")
	req.NoError(err)
	req.True(exists)
}

func TestSweeper_Heartbeats_Keep_Participant_Alive(t *testing.T) {
	req := require.New(t)
	r := newRoom(t)
	ctx := context.Background()
	req.NoError(r.registry.Join(ctx, "alice"))
	req.NoError(r.registry.Join(ctx, "bob"))

	// Given alice heartbeats every 5 seconds for a minute while bob stays silent
	for i := 0; i < 12; i++ {
		r.clock.Advance(5 * time.Second)
		req.NoError(r.registry.Heartbeat(ctx, "alice"))
		r.sweeper.Sweep(ctx)
	}

	// Then only bob was evicted, once
	participants, err := r.registry.List(ctx)
	req.NoError(err)
	req.Len(participants, 1)
	req.Equal("alice", participants[0].Name)
	req.Equal([]string{domain.StatusJoined, domain.StatusLeft}, statusesOf(t, r.store, "bob"))
	req.Equal([]string{domain.StatusJoined}, statusesOf(t, r.store, "alice"))
}

func TestSweeper_Evicts_Only_Once(t *testing.T) {
	req := require.New(t)
	r := newRoom(t)
	ctx := context.Background()
	req.NoError(r.registry.Join(ctx, "alice"))
	r.clock.Advance(time.Minute)

	req.Equal([]string{"alice"}, r.sweeper.Sweep(ctx))
	req.Empty(r.sweeper.Sweep(ctx))

	req.Equal([]string{domain.StatusJoined, domain.StatusLeft}, statusesOf(t, r.store, "alice"))
}

func TestSweeper_Failure_Does_Not_Stop_The_Sweep(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	registry := mocks.NewMockIRegistry(ctrl)

	// Given three stale participants, the first failing to be evicted
	// and the second evicted without its left status
	registry.EXPECT().List(gomock.Any()).Return([]domain.Participant{
		{Name: "alice", LastSeen: now.Add(-time.Minute)},
		{Name: "bob", LastSeen: now.Add(-time.Minute)},
		{Name: "clara", LastSeen: now.Add(-time.Minute)},
		{Name: "dave", LastSeen: now},
	}, nil)
	registry.EXPECT().EvictIfStale(gomock.Any(), "alice", now, staleAfter).
		Return(contract.Eviction{}, fmt.Errorf("disk full"))
	registry.EXPECT().EvictIfStale(gomock.Any(), "bob", now, staleAfter).
		Return(contract.Eviction{Evicted: true, StatusErr: fmt.Errorf("disk full")}, nil)
	registry.EXPECT().EvictIfStale(gomock.Any(), "clara", now, staleAfter).
		Return(contract.Eviction{Evicted: true}, nil)

	sweeper := NewSweeperWorker(slog.Default(), registry, metrics,
		func() time.Time { return now }, sweepInterval, staleAfter)

	// When the sweep runs
	evicted := sweeper.Sweep(context.Background())

	// Then the failure is counted and the others are still processed
	req.Equal([]string{"bob", "clara"}, evicted)
	req.Equal(2.0, testutil.ToFloat64(metrics.SweepFailures))
	req.Equal(2.0, testutil.ToFloat64(metrics.ParticipantsEvicted))
}

func TestSweeper_List_Failure_Is_Counted(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	registry := mocks.NewMockIRegistry(ctrl)
	registry.EXPECT().List(gomock.Any()).Return(nil, fmt.Errorf("closed"))

	sweeper := NewSweeperWorker(slog.Default(), registry, metrics, time.Now, sweepInterval, staleAfter)

	req.Empty(sweeper.Sweep(context.Background()))
	req.Equal(1.0, testutil.ToFloat64(metrics.SweepFailures))
}

func TestSweeper_Run_Stops_On_Cancel(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	registry.EXPECT().List(gomock.Any()).Return([]domain.Participant{}, nil).MinTimes(1)

	sweeper := NewSweeperWorker(slog.Default(), registry,
		observability.NewMetrics(prometheus.NewRegistry()), time.Now, 10*time.Millisecond, staleAfter)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req.NoError(sweeper.Run(ctx))
}
