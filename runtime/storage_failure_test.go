package runtime

import (
	"chat-presence/domain"
	"chat-presence/errors"
	"chat-presence/mocks"
	"chat-presence/moderation"
	"chat-presence/observability"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var errDisk = fmt.Errorf("disk is full")

func TestRegistry_Join_Storage_Failure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIParticipantRepository(ctrl)
	statuses := mocks.NewMockStatusRecorder(ctrl)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	registry := NewRegistry(slog.Default(), repository, statuses, moderation.NewSanitizer(nil), metrics, time.Now)

	// Given the participant cannot be written
	repository.EXPECT().Create(gomock.Any()).Return(errDisk)

	// When alice joins
	err := registry.Join(context.Background(), "alice")

	// Then the failure is internal and nothing is announced
	req.ErrorIs(err, errors.ErrInternal)
	req.NotErrorIs(err, errors.ErrConflict)
	req.Equal(0.0, testutil.ToFloat64(metrics.ActiveParticipants))
}

func TestRegistry_Heartbeat_Storage_Failure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIParticipantRepository(ctrl)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	registry := NewRegistry(slog.Default(), repository, mocks.NewMockStatusRecorder(ctrl),
		moderation.NewSanitizer(nil), metrics, time.Now)

	repository.EXPECT().Touch("alice", gomock.Any()).Return(errDisk)
	repository.EXPECT().Touch("ghost", gomock.Any()).Return(errors.ErrParticipantGone)

	req.ErrorIs(registry.Heartbeat(context.Background(), "alice"), errors.ErrInternal)
	err := registry.Heartbeat(context.Background(), "ghost")
	req.ErrorIs(err, errors.ErrNotFound)
	req.NotErrorIs(err, errors.ErrInternal)
}

func TestRegistry_EvictIfStale_Delete_Failure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIParticipantRepository(ctrl)
	statuses := mocks.NewMockStatusRecorder(ctrl)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	registry := NewRegistry(slog.Default(), repository, statuses, moderation.NewSanitizer(nil), metrics, time.Now)
	now := time.Date(2024, 3, 1, 10, 0, 11, 0, time.UTC)
	silent := domain.Participant{Name: "alice", LastSeen: now.Add(-11 * time.Second)}

	// Given a silent participant whose record cannot be deleted
	repository.EXPECT().Get("alice").Return(silent, nil).Times(2)
	statuses.EXPECT().AppendSystemStatus(gomock.Any(), "alice", domain.StatusLeft).Return(domain.Message{}, nil)
	repository.EXPECT().Delete("alice").Return(errDisk)

	// When the eviction runs
	eviction, err := registry.EvictIfStale(context.Background(), "alice", now, 10*time.Second)

	// Then the failure is reported and nobody counts as evicted
	req.ErrorIs(err, errors.ErrInternal)
	req.False(eviction.Evicted)
	req.NoError(eviction.StatusErr)
}

func TestMessageStore_Storage_Failures(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	store := NewMessageStore(slog.Default(), repository, moderation.NewSanitizer(nil), metrics, time.Now)
	ctx := context.Background()
	id := uuid.New()

	repository.EXPECT().Append(gomock.Any()).Return(domain.Message{}, errDisk)
	repository.EXPECT().Scan(gomock.Any(), gomock.Nil()).Return(nil, errDisk)
	repository.EXPECT().Get(id).Return(domain.Message{ID: id, From: "alice", To: "bob", Text: "hi", Kind: domain.KindPrivate}, nil)
	repository.EXPECT().Replace(gomock.Any()).Return(errDisk)

	_, err := store.Post(ctx, domain.PostMessageCommand{From: "alice", To: domain.BroadcastTarget, Text: "hi", Kind: domain.KindChat})
	req.ErrorIs(err, errors.ErrInternal)

	_, err = store.Query(ctx, "alice", nil)
	req.ErrorIs(err, errors.ErrInternal)

	_, err = store.Update(ctx, domain.UpdateMessageCommand{ID: id, Requester: "alice", To: "bob", Text: "hello", Kind: domain.KindPrivate})
	req.ErrorIs(err, errors.ErrInternal)

	// Failed writes are not counted
	req.Equal(0.0, testutil.ToFloat64(metrics.MessagesPosted.WithLabelValues(string(domain.KindChat))))
	req.Equal(0.0, testutil.ToFloat64(metrics.MessagesEdited))
}
