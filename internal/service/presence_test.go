package service

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/error-99/videocall/internal/domain"
	"github.com/stretchr/testify/require"
)

func newRegistry() *PresenceRegistry {
	return NewPresenceRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func client(id, name string) *domain.Client {
	return domain.NewClient(domain.Identity{ID: id, DisplayName: name}, nil)
}

func TestPresenceRegistry_RegisterAndSnapshotOrder(t *testing.T) {
	req := require.New(t)
	r := newRegistry()

	req.Nil(r.Register(client("alice", "Alice")))
	req.Nil(r.Register(client("bob", "Bob")))
	req.Nil(r.Register(client("carol", "Carol")))

	users := r.Snapshot()
	req.Len(users, 3)
	req.Equal("alice", users[0].ID)
	req.Equal("bob", users[1].ID)
	req.Equal("carol", users[2].ID)
}

func TestPresenceRegistry_LatestConnectionWins(t *testing.T) {
	req := require.New(t)
	r := newRegistry()

	first := client("alice", "Alice")
	second := client("alice", "Alice")

	req.Nil(r.Register(first))
	evicted := r.Register(second)
	req.Same(first, evicted)

	users := r.Snapshot()
	req.Len(users, 1)

	current, ok := r.Lookup("alice")
	req.True(ok)
	req.Same(second, current)
}

func TestPresenceRegistry_StaleUnregisterIsNoOp(t *testing.T) {
	req := require.New(t)
	r := newRegistry()

	first := client("alice", "Alice")
	second := client("alice", "Alice")
	r.Register(first)
	r.Register(second)

	// The evicted handle tears down late; the live entry must survive.
	req.False(r.Unregister(first))
	_, ok := r.Lookup("alice")
	req.True(ok)

	req.True(r.Unregister(second))
	_, ok = r.Lookup("alice")
	req.False(ok)
	req.Empty(r.Snapshot())
}

func TestPresenceRegistry_NoDuplicatesUnderChurn(t *testing.T) {
	req := require.New(t)
	r := newRegistry()

	handles := make([]*domain.Client, 0)
	for round := 0; round < 5; round++ {
		for i := 0; i < 4; i++ {
			id := fmt.Sprintf("user-%d", i)
			h := client(id, id)
			handles = append(handles, h)
			r.Register(h)
		}
	}
	r.Unregister(handles[len(handles)-1])

	users := r.Snapshot()
	seen := make(map[string]struct{}, len(users))
	for _, u := range users {
		_, dup := seen[u.ID]
		req.False(dup, "identity %s appears twice", u.ID)
		seen[u.ID] = struct{}{}
	}
	req.Len(users, 3)

	clients := r.Clients()
	seenHandles := make(map[*domain.Client]struct{}, len(clients))
	for _, c := range clients {
		_, dup := seenHandles[c]
		req.False(dup, "handle appears twice")
		seenHandles[c] = struct{}{}
	}
}

func TestPresenceRegistry_LookupUnknown(t *testing.T) {
	r := newRegistry()
	_, ok := r.Lookup("nobody")
	require.False(t, ok)
}
