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

	"github.com/google/uuid"
)

// MessageStore owns the message log.
// Callers are expected to have checked the sender against the Registry.
type MessageStore struct {
	mu         sync.Mutex
	log        *slog.Logger
	repository repositories.IMessageRepository
	sanitizer  *moderation.Sanitizer
	metrics    *observability.Metrics
	now        contract.Clock
}

func NewMessageStore(log *slog.Logger, repository repositories.IMessageRepository,
	sanitizer *moderation.Sanitizer, metrics *observability.Metrics, now contract.Clock) *MessageStore {
	return &MessageStore{
		log:        log,
		repository: repository,
		sanitizer:  sanitizer,
		metrics:    metrics,
		now:        now,
	}
}

// Post appends a participant message. Only chat and private kinds are accepted.
func (s *MessageStore) Post(_ context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	if cmd.From == "" {
		return domain.Message{}, fmt.Errorf("%w: sender is required", errors.ErrInvalidArgument)
	}
	to, text, err := s.clean(cmd.To, cmd.Text, cmd.Kind)
	if err != nil {
		return domain.Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.append(domain.Message{
		ID:   uuid.New(),
		From: cmd.From,
		To:   to,
		Text: text,
		Kind: cmd.Kind,
	})
}

// AppendSystemStatus records a join or leave notice addressed to everyone.
func (s *MessageStore) AppendSystemStatus(_ context.Context, from, text string) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.append(domain.Message{
		ID:   uuid.New(),
		From: from,
		To:   domain.BroadcastTarget,
		Text: text,
		Kind: domain.KindStatus,
	})
}

// Query returns the messages visible to viewer in insertion order.
// With a limit, only the most recent limit messages are returned.
func (s *MessageStore) Query(_ context.Context, viewer string, limit *int) ([]domain.Message, error) {
	if limit != nil && *limit <= 0 {
		return nil, errors.ErrInvalidLimit
	}
	messages, err := s.repository.Scan(func(m domain.Message) bool {
		return m.VisibleTo(viewer)
	}, limit)
	if err != nil {
		return nil, errors.Internal("query messages", err)
	}
	return messages, nil
}

// Update rewrites recipient, text and kind of a message owned by the requester.
// Identity, sender, time and position in the log are kept.
func (s *MessageStore) Update(_ context.Context, cmd domain.UpdateMessageCommand) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	message, err := s.owned(cmd.ID, cmd.Requester)
	if err != nil {
		return domain.Message{}, err
	}
	to, text, err := s.clean(cmd.To, cmd.Text, cmd.Kind)
	if err != nil {
		return domain.Message{}, err
	}

	message.To = to
	message.Text = text
	message.Kind = cmd.Kind
	if err = s.repository.Replace(message); err != nil {
		return domain.Message{}, s.storageError("update message", err)
	}
	s.metrics.MessagesEdited.Inc()
	return message, nil
}

func (s *MessageStore) Delete(_ context.Context, cmd domain.DeleteMessageCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.owned(cmd.ID, cmd.Requester); err != nil {
		return err
	}
	if err := s.repository.Delete(cmd.ID); err != nil {
		return s.storageError("delete message", err)
	}
	s.metrics.MessagesDeleted.Inc()
	s.log.Debug("Message deleted", "id", cmd.ID, "by", cmd.Requester)
	return nil
}

// owned loads a message and checks that requester may change it.
func (s *MessageStore) owned(id uuid.UUID, requester string) (domain.Message, error) {
	message, err := s.repository.Get(id)
	if err != nil {
		return domain.Message{}, s.storageError("get message", err)
	}
	if message.From != requester {
		return domain.Message{}, errors.ErrNotMessageOwner
	}
	if message.Kind == domain.KindStatus {
		return domain.Message{}, errors.ErrStatusImmutable
	}
	return message, nil
}

func (s *MessageStore) clean(to, text string, kind domain.Kind) (string, string, error) {
	if !kind.IsUserKind() {
		return "", "", errors.ErrInvalidKind
	}
	to = s.sanitizer.Clean(to)
	text = s.sanitizer.CleanText(text)
	if to == "" || text == "" {
		return "", "", fmt.Errorf("%w: to and text are required", errors.ErrInvalidArgument)
	}
	return to, text, nil
}

// append must be called with the lock held.
func (s *MessageStore) append(message domain.Message) (domain.Message, error) {
	message.Time = s.now().Format(domain.TimeLayout)
	stored, err := s.repository.Append(message)
	if err != nil {
		return domain.Message{}, errors.Internal("append message", err)
	}
	s.metrics.MessagesPosted.WithLabelValues(string(stored.Kind)).Inc()
	return stored, nil
}

func (s *MessageStore) storageError(op string, err error) error {
	if stderrors.Is(err, errors.ErrNotFound) {
		return err
	}
	return errors.Internal(op, err)
}
