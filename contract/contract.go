//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-presence/domain"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Clock returns the current time. Components take one so tests can drive time.
type Clock func() time.Time

// StatusRecorder appends system-authored join and leave notices.
type StatusRecorder interface {
	AppendSystemStatus(ctx context.Context, from, text string) (domain.Message, error)
}

// Eviction reports the outcome of one stale participant eviction.
// StatusErr is set when the "left" notice could not be recorded.
type Eviction struct {
	Evicted   bool
	StatusErr error
}

type IRegistry interface {
	Join(ctx context.Context, name string) error
	Heartbeat(ctx context.Context, name string) error
	List(ctx context.Context) ([]domain.Participant, error)
	Exists(ctx context.Context, name string) (bool, error)
	Remove(ctx context.Context, name string) error
	EvictIfStale(ctx context.Context, name string, now time.Time, threshold time.Duration) (Eviction, error)
}

type IMessageStore interface {
	StatusRecorder
	Post(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error)
	Query(ctx context.Context, viewer string, limit *int) ([]domain.Message, error)
	Update(ctx context.Context, cmd domain.UpdateMessageCommand) (domain.Message, error)
	Delete(ctx context.Context, cmd domain.DeleteMessageCommand) error
}
