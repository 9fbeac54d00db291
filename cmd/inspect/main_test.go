package main

import (
	"bytes"
	"chat-presence/domain"
	"chat-presence/repositories"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) *badger.DB {
	t.Helper()
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	req.NoError(repositories.NewParticipantRepository(db).Create(domain.Participant{Name: "alice", LastSeen: time.Now()}))
	messages, err := repositories.NewMessageRepository(db, slog.Default())
	req.NoError(err)
	defer func() { _ = messages.Close() }()
	for _, m := range []domain.Message{
		{ID: uuid.New(), From: "alice", To: domain.BroadcastTarget, Text: "public", Kind: domain.KindChat, Time: "10:00:00"},
		{ID: uuid.New(), From: "clara", To: "dave", Text: "secret", Kind: domain.KindPrivate, Time: "10:00:01"},
	} {
		_, err = messages.Append(m)
		req.NoError(err)
	}
	return db
}

func TestDump_All(t *testing.T) {
	req := require.New(t)
	db := seed(t)
	var out bytes.Buffer

	req.NoError(dump(db, options{what: "all"}, &out))

	req.Contains(out.String(), "alice")
	req.Contains(out.String(), "public")
	req.Contains(out.String(), "secret")
}

func TestDump_Messages_For_Viewer(t *testing.T) {
	req := require.New(t)
	db := seed(t)
	var out bytes.Buffer

	req.NoError(dump(db, options{what: "messages", viewer: "bob"}, &out))

	req.Contains(out.String(), "public")
	req.NotContains(out.String(), "secret")
}

func TestRun_Rejects_Unknown_Section(t *testing.T) {
	var out bytes.Buffer
	require.Error(t, run([]string{"--what", "rooms"}, &out))
}
