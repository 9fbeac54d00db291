package server

import (
	"chat-presence/domain"
	"chat-presence/errors"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = validator.New()

// maxBodyBytes bounds every decoded request body.
const maxBodyBytes = 64 << 10

type JoinRequest struct {
	Name string `json:"name" validate:"required,alphanum"`
}

type MessageRequest struct {
	To   string `json:"to" validate:"required"`
	Text string `json:"text" validate:"required"`
	Type string `json:"type" validate:"required,oneof=message private_message"`
}

type ParticipantResponse struct {
	Name       string `json:"name"`
	LastStatus int64  `json:"lastStatus"`
}

type MessageResponse struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
	Time string `json:"time"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// decode reads a JSON body into dst and validates it.
// Any malformed or invalid body is an InvalidArgument.
func decode(body io.Reader, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed body: %v", errors.ErrInvalidArgument, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidArgument, err)
	}
	return nil
}

// parseLimit reads the optional limit query parameter.
func parseLimit(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return nil, errors.ErrInvalidLimit
	}
	return &limit, nil
}

func toParticipantResponse(participants []domain.Participant) []ParticipantResponse {
	return lo.Map(participants, func(p domain.Participant, _ int) ParticipantResponse {
		return ParticipantResponse{Name: p.Name, LastStatus: p.LastSeen.UnixMilli()}
	})
}

func toMessageResponse(message domain.Message) MessageResponse {
	return MessageResponse{
		ID:   message.ID.String(),
		From: message.From,
		To:   message.To,
		Text: message.Text,
		Type: string(message.Kind),
		Time: message.Time,
	}
}

func toMessagesResponse(messages []domain.Message) []MessageResponse {
	return lo.Map(messages, func(m domain.Message, _ int) MessageResponse {
		return toMessageResponse(m)
	})
}
