// Package tracker holds the client-side durable registries of order refnos:
// the pending set (refnos placed but not yet confirmed delivered) and the
// completed set (refnos whose cards were already rendered to the buyer).
package tracker

import (
	"log"
	"sort"
	"sync"

	"github.com/xeromart/storefront/pkg/types"
)

// Standard file names for the persisted client state.
const (
	PendingFile   = "pendingOrderRefnos.json"
	CompletedFile = "completedOrders.json"
)

// Tracker is the durable set of refnos not yet confirmed delivered. Losing
// it never loses money or cards; it only delays the buyer's visibility of a
// card that still exists server-side.
type Tracker struct {
	mu     sync.Mutex
	repo   Repository
	refnos map[string]struct{}
}

// NewTracker loads the tracker from its repository. Entries that do not
// match the authoritative refno shape are dropped immediately, without any
// network call: they are artifacts of a placement that was never confirmed
// against a server-issued refno.
func NewTracker(repo Repository) (*Tracker, error) {
	stored, err := repo.Load()
	if err != nil {
		return nil, err
	}

	t := &Tracker{repo: repo, refnos: make(map[string]struct{})}
	dropped := 0
	for _, r := range stored {
		if !types.AuthoritativeRefno(r) {
			dropped++
			continue
		}
		t.refnos[r] = struct{}{}
	}
	if dropped > 0 {
		log.Printf("Warning: dropped %d non-authoritative refnos from pending tracker", dropped)
		if err := t.persistLocked(); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// persistLocked writes the current set. Callers must hold mu.
func (t *Tracker) persistLocked() error {
	return t.repo.Save(t.listLocked())
}

func (t *Tracker) listLocked() []string {
	out := make([]string, 0, len(t.refnos))
	for r := range t.refnos {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Add registers a refno as outstanding and persists.
func (t *Tracker) Add(refno string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refnos[refno] = struct{}{}
	return t.persistLocked()
}

// Remove drops one refno and persists.
func (t *Tracker) Remove(refno string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.refnos, refno)
	return t.persistLocked()
}

// RemoveMany drops a batch of refnos in one durable write.
func (t *Tracker) RemoveMany(refnos []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range refnos {
		delete(t.refnos, r)
	}
	return t.persistLocked()
}

// Replace swaps the whole set in one durable write.
func (t *Tracker) Replace(refnos []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refnos = make(map[string]struct{}, len(refnos))
	for _, r := range refnos {
		t.refnos[r] = struct{}{}
	}
	return t.persistLocked()
}

// List returns the outstanding refnos, sorted.
func (t *Tracker) List() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.listLocked()
}

// Len returns the number of outstanding refnos.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.refnos)
}

// CompletedSet is the dedupe cache of refnos already rendered to the buyer.
// Membership is permanent: a refno that reappears in a stale tracker
// snapshot is never rendered a second time.
type CompletedSet struct {
	mu     sync.Mutex
	repo   Repository
	refnos map[string]struct{}
}

// NewCompletedSet loads the completed set from its repository.
func NewCompletedSet(repo Repository) (*CompletedSet, error) {
	stored, err := repo.Load()
	if err != nil {
		return nil, err
	}

	s := &CompletedSet{repo: repo, refnos: make(map[string]struct{}, len(stored))}
	for _, r := range stored {
		s.refnos[r] = struct{}{}
	}
	return s, nil
}

// Contains reports whether the refno was already rendered.
func (s *CompletedSet) Contains(refno string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.refnos[refno]
	return ok
}

// Add marks a refno as rendered and persists.
func (s *CompletedSet) Add(refno string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refnos[refno] = struct{}{}

	out := make([]string, 0, len(s.refnos))
	for r := range s.refnos {
		out = append(out, r)
	}
	sort.Strings(out)
	return s.repo.Save(out)
}
