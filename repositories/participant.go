//go:generate go run go.uber.org/mock/mockgen -source=participant.go -destination=../mocks/mock_participant_repository.go -package=mocks
package repositories

import (
	"chat-presence/domain"
	"chat-presence/errors"
	stderrors "errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const participantPrefix = "participant:"

type IParticipantRepository interface {
	Create(participant domain.Participant) error
	Touch(name string, at time.Time) error
	Get(name string) (domain.Participant, error)
	List() ([]domain.Participant, error)
	Delete(name string) error
}

type ParticipantRepository struct {
	db *badger.DB
}

func NewParticipantRepository(db *badger.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

type diskParticipant struct {
	Name     string `cbor:"1,keyasint"`
	LastSeen int64  `cbor:"2,keyasint"`
}

func participantKey(name string) []byte {
	return []byte(participantPrefix + name)
}

// Create persists a new participant.
// The existence check and the write share one transaction, so a name can only be taken once.
func (r *ParticipantRepository) Create(participant domain.Participant) error {
	bytes, err := marshal(fromParticipant(participant))
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		key := participantKey(participant.Name)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrNameInUse
		} else if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, bytes)
	})
}

// Touch moves LastSeen forward to at. An older timestamp never overwrites a newer one.
func (r *ParticipantRepository) Touch(name string, at time.Time) error {
	return r.db.Update(func(txn *badger.Txn) error {
		current, err := getParticipant(txn, name)
		if err != nil {
			return err
		}
		if !at.After(current.LastSeen) {
			return nil
		}
		current.LastSeen = at
		bytes, err := marshal(fromParticipant(current))
		if err != nil {
			return err
		}
		return txn.Set(participantKey(name), bytes)
	})
}

func (r *ParticipantRepository) Get(name string) (domain.Participant, error) {
	var participant domain.Participant
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		participant, err = getParticipant(txn, name)
		return err
	})
	return participant, err
}

// List returns every participant ordered by name, the natural key order of badger.
func (r *ParticipantRepository) List() ([]domain.Participant, error) {
	participants := make([]domain.Participant, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = []byte(participantPrefix)
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var dp diskParticipant
			if err = unmarshal(value, &dp); err != nil {
				return err
			}
			participants = append(participants, toParticipant(dp))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// Delete is idempotent: removing an unknown name is not an error.
func (r *ParticipantRepository) Delete(name string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(participantKey(name))
	})
}

func getParticipant(txn *badger.Txn, name string) (domain.Participant, error) {
	item, err := txn.Get(participantKey(name))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Participant{}, errors.ErrParticipantGone
	}
	if err != nil {
		return domain.Participant{}, err
	}
	var dp diskParticipant
	err = item.Value(func(value []byte) error {
		return unmarshal(value, &dp)
	})
	if err != nil {
		return domain.Participant{}, err
	}
	return toParticipant(dp), nil
}

func fromParticipant(participant domain.Participant) diskParticipant {
	return diskParticipant{
		Name:     participant.Name,
		LastSeen: participant.LastSeen.UnixNano(),
	}
}

func toParticipant(dp diskParticipant) domain.Participant {
	return domain.Participant{
		Name:     dp.Name,
		LastSeen: time.Unix(0, dp.LastSeen).UTC(),
	}
}
