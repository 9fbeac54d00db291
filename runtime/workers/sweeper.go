package workers

import (
	"chat-presence/contract"
	"chat-presence/observability"
	"context"
	"log/slog"
	"time"
)

// SweeperWorker evicts participants whose last heartbeat is older than staleAfter.
// Each eviction appends a "left" status before removing the participant.
type SweeperWorker struct {
	log        *slog.Logger
	registry   contract.IRegistry
	metrics    *observability.Metrics
	now        contract.Clock
	interval   time.Duration
	staleAfter time.Duration
}

func NewSweeperWorker(log *slog.Logger, registry contract.IRegistry, metrics *observability.Metrics,
	now contract.Clock, interval, staleAfter time.Duration) *SweeperWorker {
	return &SweeperWorker{
		log:        log,
		registry:   registry,
		metrics:    metrics,
		now:        now,
		interval:   interval,
		staleAfter: staleAfter,
	}
}

func (w *SweeperWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping presence sweep")
			return nil
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs a single pass and returns the names that were evicted.
// A failure on one participant is logged and counted, the others are still processed.
func (w *SweeperWorker) Sweep(ctx context.Context) []string {
	start := w.now()
	timer := time.Now()
	defer func() {
		w.metrics.SweepDuration.Observe(time.Since(timer).Seconds())
	}()

	participants, err := w.registry.List(ctx)
	if err != nil {
		w.log.Error("Unable to list participants", "error", err)
		w.metrics.SweepFailures.Inc()
		return nil
	}

	var evicted []string
	for _, participant := range participants {
		if ctx.Err() != nil {
			return evicted
		}
		if !participant.IsStale(start, w.staleAfter) {
			continue
		}
		eviction, err := w.registry.EvictIfStale(ctx, participant.Name, start, w.staleAfter)
		if err != nil {
			w.log.Error("Unable to evict participant", "name", participant.Name, "error", err)
			w.metrics.SweepFailures.Inc()
			continue
		}
		if eviction.StatusErr != nil {
			w.log.Warn("Left status not recorded", "name", participant.Name, "error", eviction.StatusErr)
			w.metrics.SweepFailures.Inc()
		}
		if eviction.Evicted {
			evicted = append(evicted, participant.Name)
			w.metrics.ParticipantsEvicted.Inc()
		}
	}

	if len(evicted) > 0 {
		w.log.Info("Stale participants evicted", "names", evicted,
			"remaining", len(participants)-len(evicted))
	}
	return evicted
}
