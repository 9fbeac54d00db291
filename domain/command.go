package domain

import "github.com/google/uuid"

type PostMessageCommand struct {
	From string
	To   string
	Text string
	Kind Kind
}

type UpdateMessageCommand struct {
	ID        uuid.UUID
	Requester string
	To        string
	Text      string
	Kind      Kind
}

type DeleteMessageCommand struct {
	ID        uuid.UUID
	Requester string
}

// GetMessagesCommand asks for the messages visible to Viewer.
// A nil Limit returns the whole history.
type GetMessagesCommand struct {
	Viewer string
	Limit  *int
}
