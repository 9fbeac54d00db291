// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Only the sender may change a message, and only its recipient, text and kind.
package domain

import (
	"github.com/google/uuid"
)

// BroadcastTarget is the reserved recipient meaning every present participant.
const BroadcastTarget = "Todos"

// TimeLayout is the display format of Message.Time.
const TimeLayout = "15:04:05"

const (
	StatusJoined = "joined"
	StatusLeft   = "left"
)

type Kind string

const (
	KindChat    Kind = "message"
	KindPrivate Kind = "private_message"
	KindStatus  Kind = "status"
)

// IsUserKind reports whether the kind may be set by a participant.
// Status messages are reserved for join and leave notices.
func (k Kind) IsUserKind() bool {
	return k == KindChat || k == KindPrivate
}

// Message represents a chat event.
// Seq is assigned by the store and is the only ordering authority; Time is display only.
type Message struct {
	ID   uuid.UUID
	Seq  uint64
	From string
	To   string
	Text string
	Kind Kind
	Time string
}

// VisibleTo reports whether viewer may read the message.
func (m Message) VisibleTo(viewer string) bool {
	return m.From == viewer || m.To == viewer || m.To == BroadcastTarget
}
