//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-presence/domain"
	"chat-presence/errors"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	messagePrefix      = "msg:"
	messageIndexPrefix = "msgid:"
	messageSequenceKey = "seq:msg"
	sequenceBandwidth  = 100
)

type IMessageRepository interface {
	Append(message domain.Message) (domain.Message, error)
	Get(id uuid.UUID) (domain.Message, error)
	Replace(message domain.Message) error
	Delete(id uuid.UUID) error
	Scan(visible func(domain.Message) bool, limit *int) ([]domain.Message, error)
}

type MessageRepository struct {
	db       *badger.DB
	log      *slog.Logger
	sequence *badger.Sequence
}

// NewMessageRepository leases a badger sequence used to number messages.
// Close must be called to hand back the unused part of the lease.
func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	sequence, err := db.GetSequence([]byte(messageSequenceKey), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message sequence lease failed: %w", err)
	}
	return &MessageRepository{db: db, log: log, sequence: sequence}, nil
}

func (m *MessageRepository) Close() error {
	return m.sequence.Release()
}

type diskMessage struct {
	ID   string `cbor:"1,keyasint"`
	Seq  uint64 `cbor:"2,keyasint"`
	From string `cbor:"3,keyasint"`
	To   string `cbor:"4,keyasint"`
	Text string `cbor:"5,keyasint"`
	Kind string `cbor:"6,keyasint"`
	Time string `cbor:"7,keyasint"`
}

// The sequence is zero padded to 20 digits so lexicographical key order is insertion order.
func messageKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", messagePrefix, seq))
}

func messageIndexKey(id uuid.UUID) []byte {
	return []byte(messageIndexPrefix + id.String())
}

// Append numbers the message and persists it together with its id index entry.
func (m *MessageRepository) Append(message domain.Message) (domain.Message, error) {
	seq, err := m.sequence.Next()
	if err != nil {
		return domain.Message{}, fmt.Errorf("sequence failed: %w", err)
	}
	message.Seq = seq
	bytes, err := marshal(fromMessage(message))
	if err != nil {
		return domain.Message{}, err
	}
	key := messageKey(seq)
	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		return txn.Set(messageIndexKey(message.ID), key)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

func (m *MessageRepository) Get(id uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		var err error
		message, _, err = getMessage(txn, id)
		return err
	})
	return message, err
}

// Replace overwrites the stored message in place, keeping its key and therefore its position.
func (m *MessageRepository) Replace(message domain.Message) error {
	return m.db.Update(func(txn *badger.Txn) error {
		_, key, err := getMessage(txn, message.ID)
		if err != nil {
			return err
		}
		bytes, err := marshal(fromMessage(message))
		if err != nil {
			return err
		}
		return txn.Set(key, bytes)
	})
}

func (m *MessageRepository) Delete(id uuid.UUID) error {
	return m.db.Update(func(txn *badger.Txn) error {
		_, key, err := getMessage(txn, id)
		if err != nil {
			return err
		}
		if err = txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete(messageIndexKey(id))
	})
}

// Scan walks the log from the newest message backwards and keeps the ones accepted by visible.
// It stops once limit messages are collected, then restores insertion order.
func (m *MessageRepository) Scan(visible func(domain.Message) bool, limit *int) ([]domain.Message, error) {
	messages, err := scanMessages(m.db, visible, limit)
	if err != nil {
		return nil, err
	}
	m.log.Debug("Messages scanned", "count", len(messages))
	return messages, nil
}

// ReadMessages returns the whole log in insertion order.
// It does not lease a sequence, so it works on a database opened read-only.
func ReadMessages(db *badger.DB) ([]domain.Message, error) {
	return scanMessages(db, func(domain.Message) bool { return true }, nil)
}

func scanMessages(db *badger.DB, visible func(domain.Message) bool, limit *int) ([]domain.Message, error) {
	messages := make([]domain.Message, 0)
	err := db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the highest possible key, then walk back
		seekKey := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit != nil && len(messages) == *limit {
				break
			}
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var dm diskMessage
			if err = unmarshal(value, &dm); err != nil {
				return err
			}
			message, err := toMessage(dm)
			if err != nil {
				return err
			}
			if visible(message) {
				messages = append(messages, message)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(messages)
	return messages, nil
}

func getMessage(txn *badger.Txn, id uuid.UUID) (domain.Message, []byte, error) {
	indexItem, err := txn.Get(messageIndexKey(id))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, nil, errors.ErrMessageNotFound
	}
	if err != nil {
		return domain.Message{}, nil, err
	}
	key, err := indexItem.ValueCopy(nil)
	if err != nil {
		return domain.Message{}, nil, err
	}
	item, err := txn.Get(key)
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, nil, errors.ErrMessageNotFound
	}
	if err != nil {
		return domain.Message{}, nil, err
	}
	var dm diskMessage
	if err = item.Value(func(value []byte) error {
		return unmarshal(value, &dm)
	}); err != nil {
		return domain.Message{}, nil, err
	}
	message, err := toMessage(dm)
	return message, key, err
}

func fromMessage(message domain.Message) diskMessage {
	return diskMessage{
		ID:   message.ID.String(),
		Seq:  message.Seq,
		From: message.From,
		To:   message.To,
		Text: message.Text,
		Kind: string(message.Kind),
		Time: message.Time,
	}
}

func toMessage(dm diskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(dm.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:   parsedID,
		Seq:  dm.Seq,
		From: dm.From,
		To:   dm.To,
		Text: dm.Text,
		Kind: domain.Kind(dm.Kind),
		Time: dm.Time,
	}, nil
}
