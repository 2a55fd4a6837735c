package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/error-99/videocall/internal/domain"
)

// PresenceEntry binds an online identity to its live connection handle.
type PresenceEntry struct {
	Client *domain.Client
	Since  time.Time
}

// PresenceRegistry maps identity ids to connection handles. At most one
// entry exists per identity; a re-registration evicts the stale handle.
// All mutations go through the CallSessionCoordinator so that presence and
// session transitions touching the same identity never interleave; the
// registry's own lock only makes concurrent reads (snapshot, lookup) safe.
type PresenceRegistry struct {
	mu      sync.RWMutex
	entries map[string]*PresenceEntry
	order   []string
	log     *slog.Logger
}

func NewPresenceRegistry(log *slog.Logger) *PresenceRegistry {
	if log == nil {
		log = slog.Default()
	}
	return &PresenceRegistry{
		entries: make(map[string]*PresenceEntry),
		log:     log,
	}
}

// Register inserts the client's identity, evicting any entry the identity
// already holds. The evicted handle is returned so the caller can finish
// tearing it down; latest connection wins.
func (r *PresenceRegistry) Register(client *domain.Client) *domain.Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := client.Identity.ID

	var evicted *domain.Client
	if existing, ok := r.entries[id]; ok {
		evicted = existing.Client
		r.removeLocked(id)
	}

	r.entries[id] = &PresenceEntry{Client: client, Since: time.Now().UTC()}
	r.order = append(r.order, id)

	r.log.Info("identity registered",
		slog.String("user_id", id),
		slog.String("display_name", client.Identity.DisplayName),
		slog.Bool("evicted_stale", evicted != nil),
	)

	return evicted
}

// Unregister removes the identity's entry, but only while the given handle
// still owns it. A stale handle unregistering after an eviction is a no-op.
func (r *PresenceRegistry) Unregister(client *domain.Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := client.Identity.ID
	existing, ok := r.entries[id]
	if !ok || existing.Client != client {
		return false
	}

	r.removeLocked(id)
	r.log.Info("identity unregistered", slog.String("user_id", id))
	return true
}

func (r *PresenceRegistry) Lookup(identityID string) (*domain.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[identityID]
	if !ok {
		return nil, false
	}
	return entry.Client, true
}

// Snapshot returns the online identities in insertion order. The order is
// not stable across churn: an evicted-and-reinserted identity moves last.
func (r *PresenceRegistry) Snapshot() []domain.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]domain.Identity, 0, len(r.order))
	for _, id := range r.order {
		if entry, ok := r.entries[id]; ok {
			users = append(users, entry.Client.Identity)
		}
	}
	return users
}

// Clients returns the live handles in insertion order, for broadcasts.
func (r *PresenceRegistry) Clients() []*domain.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*domain.Client, 0, len(r.order))
	for _, id := range r.order {
		if entry, ok := r.entries[id]; ok {
			clients = append(clients, entry.Client)
		}
	}
	return clients
}

func (r *PresenceRegistry) removeLocked(id string) {
	delete(r.entries, id)
	for i, ordered := range r.order {
		if ordered == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}
