// Package runtime holds the stateful components of the chat engine.
// Each component owns one collection and serializes its own mutations.
package runtime

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/errors"
	"chat-presence/moderation"
	"chat-presence/observability"
	"chat-presence/repositories"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Registry owns the participant lifecycle.
// Join, Heartbeat, Remove and evictions run under one lock so name uniqueness
// and heartbeat ordering hold with concurrent callers.
type Registry struct {
	mu         sync.RWMutex
	log        *slog.Logger
	repository repositories.IParticipantRepository
	statuses   contract.StatusRecorder
	sanitizer  *moderation.Sanitizer
	metrics    *observability.Metrics
	now        contract.Clock
}

func NewRegistry(log *slog.Logger, repository repositories.IParticipantRepository,
	statuses contract.StatusRecorder, sanitizer *moderation.Sanitizer,
	metrics *observability.Metrics, now contract.Clock) *Registry {
	return &Registry{
		log:        log,
		repository: repository,
		statuses:   statuses,
		sanitizer:  sanitizer,
		metrics:    metrics,
		now:        now,
	}
}

// Join registers name and announces it with a "joined" status message.
// If the announcement cannot be written the participant is removed again,
// so a failed join leaves nothing behind and can be retried.
func (r *Registry) Join(ctx context.Context, name string) error {
	name = r.sanitizer.Clean(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", errors.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.repository.Create(domain.Participant{Name: name, LastSeen: r.now()})
	if stderrors.Is(err, errors.ErrConflict) {
		return err
	}
	if err != nil {
		return errors.Internal("create participant", err)
	}

	if _, err = r.statuses.AppendSystemStatus(ctx, name, domain.StatusJoined); err != nil {
		if rollbackErr := r.repository.Delete(name); rollbackErr != nil {
			r.log.Error("Join rollback failed", "name", name, "error", rollbackErr)
		}
		return errors.Internal("announce participant", err)
	}

	r.metrics.ParticipantsJoined.Inc()
	r.metrics.ActiveParticipants.Inc()
	r.log.Info("Participant joined", "name", name)
	return nil
}

// Heartbeat refreshes the participant's LastSeen.
// The timestamp is taken under the lock, so the latest call always wins.
func (r *Registry) Heartbeat(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.repository.Touch(name, r.now())
	if stderrors.Is(err, errors.ErrNotFound) {
		return err
	}
	if err != nil {
		return errors.Internal("heartbeat", err)
	}
	return nil
}

func (r *Registry) List(_ context.Context) ([]domain.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	participants, err := r.repository.List()
	if err != nil {
		return nil, errors.Internal("list participants", err)
	}
	return participants, nil
}

func (r *Registry) Count(ctx context.Context) (int, error) {
	participants, err := r.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(participants), nil
}

func (r *Registry) Exists(_ context.Context, name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, err := r.repository.Get(name)
	if stderrors.Is(err, errors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Internal("lookup participant", err)
	}
	return true, nil
}

// Remove deletes name. Removing an unknown participant succeeds.
func (r *Registry) Remove(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.remove(name)
	return err
}

// EvictIfStale removes name when it is still stale at now, after recording a "left" status.
// The staleness check is repeated under the lock: a heartbeat that landed after the
// sweeper's snapshot keeps the participant. A failed status write is returned in
// the result but does not prevent the removal.
func (r *Registry) EvictIfStale(ctx context.Context, name string, now time.Time, threshold time.Duration) (contract.Eviction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	participant, err := r.repository.Get(name)
	if stderrors.Is(err, errors.ErrNotFound) {
		return contract.Eviction{}, nil
	}
	if err != nil {
		return contract.Eviction{}, errors.Internal("lookup participant", err)
	}
	if !participant.IsStale(now, threshold) {
		return contract.Eviction{}, nil
	}

	var eviction contract.Eviction
	if _, err = r.statuses.AppendSystemStatus(ctx, name, domain.StatusLeft); err != nil {
		eviction.StatusErr = err
	}
	if eviction.Evicted, err = r.remove(name); err != nil {
		return eviction, err
	}
	return eviction, nil
}

// remove must be called with the write lock held.
func (r *Registry) remove(name string) (bool, error) {
	_, err := r.repository.Get(name)
	if stderrors.Is(err, errors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Internal("lookup participant", err)
	}
	if err = r.repository.Delete(name); err != nil {
		return false, errors.Internal("remove participant", err)
	}
	r.metrics.ActiveParticipants.Dec()
	r.log.Info("Participant removed", "name", name)
	return true, nil
}
