//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/errors"
	"context"
	"fmt"
)

type IChatService interface {
	Join(ctx context.Context, name string) error
	Heartbeat(ctx context.Context, name string) error
	ListParticipants(ctx context.Context) ([]domain.Participant, error)
	PostMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error)
	GetMessages(ctx context.Context, cmd domain.GetMessagesCommand) ([]domain.Message, error)
	UpdateMessage(ctx context.Context, cmd domain.UpdateMessageCommand) (domain.Message, error)
	DeleteMessage(ctx context.Context, cmd domain.DeleteMessageCommand) error
}

// ChatService is what the gateway talks to.
// Senders and viewers must be registered before posting or reading.
type ChatService struct {
	registry contract.IRegistry
	store    contract.IMessageStore
}

func NewChatService(registry contract.IRegistry, store contract.IMessageStore) *ChatService {
	return &ChatService{registry: registry, store: store}
}

func (s *ChatService) Join(ctx context.Context, name string) error {
	return s.registry.Join(ctx, name)
}

func (s *ChatService) Heartbeat(ctx context.Context, name string) error {
	return s.registry.Heartbeat(ctx, name)
}

func (s *ChatService) ListParticipants(ctx context.Context) ([]domain.Participant, error) {
	return s.registry.List(ctx)
}

func (s *ChatService) PostMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	if err := s.authorize(ctx, cmd.From); err != nil {
		return domain.Message{}, err
	}
	return s.store.Post(ctx, cmd)
}

func (s *ChatService) GetMessages(ctx context.Context, cmd domain.GetMessagesCommand) ([]domain.Message, error) {
	if err := s.authorize(ctx, cmd.Viewer); err != nil {
		return nil, err
	}
	return s.store.Query(ctx, cmd.Viewer, cmd.Limit)
}

// UpdateMessage and DeleteMessage only check ownership: an unknown id is NotFound
// whoever asks, and a sender that has since been evicted may still change its own messages.
func (s *ChatService) UpdateMessage(ctx context.Context, cmd domain.UpdateMessageCommand) (domain.Message, error) {
	return s.store.Update(ctx, cmd)
}

func (s *ChatService) DeleteMessage(ctx context.Context, cmd domain.DeleteMessageCommand) error {
	return s.store.Delete(ctx, cmd)
}

func (s *ChatService) authorize(ctx context.Context, name string) error {
	if name == "" {
		return errors.ErrUnknownSender
	}
	exists, err := s.registry.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", errors.ErrUnknownSender, name)
	}
	return nil
}
