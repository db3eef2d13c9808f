package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wricardo/mcp-training/rpsmatch/game/engine"
	"github.com/wricardo/mcp-training/rpsmatch/logger"
	"github.com/wricardo/mcp-training/rpsmatch/metrics"
)

var (
	ErrMatchAlreadyExists = errors.New("match already exists")
)

// lookupAttempts bounds how often a caller that raced with the removal of
// an entry looks the match up again
const lookupAttempts = 3

// entry owns one match. mu serializes writers; current is the last
// published snapshot and is never mutated after Store. Once retired, under
// mu, the entry is out of the map and callers must look the match up again.
type entry struct {
	mu      sync.Mutex
	current atomic.Pointer[engine.Match]
	retired atomic.Bool
}

// retire must be called with e.mu held
func (e *entry) retire() {
	e.current.Store(nil)
	e.retired.Store(true)
}

// Store handles match records and their atomic mutation
type Store struct {
	matches     map[string]*entry
	persistence MatchPersistence
	rules       engine.Rules
	mu          sync.RWMutex
}

// NewStore creates an in-memory store
func NewStore(rules engine.Rules) *Store {
	return &Store{
		matches: make(map[string]*entry),
		rules:   rules,
	}
}

// NewStoreWithPersistence creates a store that writes every snapshot through
// to persistence before publishing it
func NewStoreWithPersistence(rules engine.Rules, persistence MatchPersistence) *Store {
	return &Store{
		matches:     make(map[string]*entry),
		persistence: persistence,
		rules:       rules,
	}
}

// Create stores a new match
func (s *Store) Create(ctx context.Context, match *engine.Match) error {
	if match == nil || match.ID == "" {
		return fmt.Errorf("match must have an id")
	}

	e := &entry{}
	e.mu.Lock()
	defer e.mu.Unlock()

	s.mu.Lock()
	if _, exists := s.matches[match.ID]; exists {
		s.mu.Unlock()
		return ErrMatchAlreadyExists
	}
	s.matches[match.ID] = e
	metrics.ActiveMatches.Set(float64(len(s.matches)))
	s.mu.Unlock()

	snapshot := match.Clone()
	if snapshot.Version == 0 {
		snapshot.Version = 1
	}
	if s.persistence != nil {
		if err := s.persistence.Save(ctx, snapshot); err != nil {
			e.retire()
			s.removeEntry(match.ID, e)
			return fmt.Errorf("failed to persist match %s: %w", match.ID, err)
		}
	}

	e.current.Store(snapshot)
	return nil
}

// Get returns a copy of the latest snapshot, loading it from persistence
// if it is not in memory
func (s *Store) Get(ctx context.Context, id string) (*engine.Match, error) {
	for attempt := 0; attempt < lookupAttempts; attempt++ {
		e, err := s.lookup(ctx, id)
		if err != nil {
			return nil, err
		}

		if current := e.current.Load(); current != nil {
			return current.Clone(), nil
		}
		if !e.retired.Load() {
			// still being created
			return nil, engine.ErrMatchNotFound
		}
	}
	return nil, engine.ErrMatchNotFound
}

// Update applies fn to a private copy of the match while holding the match
// lock. If fn fails or the copy cannot be persisted nothing is published and
// the error is returned unchanged or wrapped. Updates of different matches
// never wait on each other.
func (s *Store) Update(ctx context.Context, id string, fn func(m *engine.Match) error) (*engine.Match, error) {
	for attempt := 0; attempt < lookupAttempts; attempt++ {
		e, err := s.lookup(ctx, id)
		if err != nil {
			return nil, err
		}

		updated, retry, err := s.update(ctx, e, id, fn)
		if !retry {
			return updated, err
		}
	}
	return nil, engine.ErrMatchNotFound
}

// update runs fn on e. retry is true when e was retired before the lock was
// acquired; fn has not run in that case.
func (s *Store) update(ctx context.Context, e *entry, id string, fn func(m *engine.Match) error) (*engine.Match, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.retired.Load() {
		return nil, true, nil
	}
	current := e.current.Load()
	if current == nil {
		return nil, false, engine.ErrMatchNotFound
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, false, err
	}
	next.Version = current.Version + 1

	if s.persistence != nil {
		if err := s.persistence.Save(ctx, next); err != nil {
			return nil, false, fmt.Errorf("failed to persist match %s: %w", id, err)
		}
	}

	e.current.Store(next)
	return next.Clone(), false, nil
}

// List returns copies of all in-memory matches
func (s *Store) List(ctx context.Context) []*engine.Match {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.matches))
	for _, e := range s.matches {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	result := make([]*engine.Match, 0, len(entries))
	for _, e := range entries {
		if current := e.current.Load(); current != nil {
			result = append(result, current.Clone())
		}
	}
	return result
}

// Delete removes a match from persistence, then from memory. The match lock
// is held across both so no caller can reload the record in between.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.RLock()
	e, inMemory := s.matches[id]
	s.mu.RUnlock()

	if inMemory {
		e.mu.Lock()
		defer e.mu.Unlock()
		inMemory = !e.retired.Load()
	}

	persisted := s.persistence != nil && s.persistence.Exists(ctx, id)
	if persisted {
		if err := s.persistence.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete persisted match: %w", err)
		}
	}

	if inMemory {
		e.retire()
		s.removeEntry(id, e)
	}

	if !inMemory && !persisted {
		return engine.ErrMatchNotFound
	}
	return nil
}

// CleanupExpired drops matches not updated within maxAge from memory, skipping
// any match whose lock is held. Persisted copies stay and are reloaded on the
// next Get.
func (s *Store) CleanupExpired(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.matches {
		// a held lock means the match is in use
		if !e.mu.TryLock() {
			continue
		}
		current := e.current.Load()
		if current != nil && current.UpdatedAt.Before(cutoff) {
			e.retire()
			delete(s.matches, id)
			removed++
		}
		e.mu.Unlock()
	}
	metrics.ActiveMatches.Set(float64(len(s.matches)))

	return removed
}

// PruneOrphans drops in-memory matches whose persisted record was removed
// out of band
func (s *Store) PruneOrphans(ctx context.Context) int {
	if s.persistence == nil {
		return 0
	}

	s.mu.RLock()
	entries := make(map[string]*entry, len(s.matches))
	for id, e := range s.matches {
		entries[id] = e
	}
	s.mu.RUnlock()

	pruned := 0
	for id, e := range entries {
		if s.persistence.Exists(ctx, id) {
			continue
		}
		if s.pruneEntry(ctx, id, e) {
			pruned++
			logger.Info("pruned match from memory", "match_id", id, "reason", "persisted record deleted")
		}
	}

	return pruned
}

func (s *Store) pruneEntry(ctx context.Context, id string, e *entry) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	// the record may have been written since the first check
	if e.retired.Load() || s.persistence.Exists(ctx, id) {
		return false
	}
	e.retire()
	s.removeEntry(id, e)
	return true
}

// Count returns the number of matches held in memory
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches)
}

// LoadPersisted loads every valid persisted match into memory
func (s *Store) LoadPersisted(ctx context.Context) error {
	if s.persistence == nil {
		return nil
	}

	ids, err := s.persistence.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list persisted matches: %w", err)
	}

	loaded := 0
	for _, id := range ids {
		if _, err := s.lookup(ctx, id); err != nil {
			logger.Warn("failed to load persisted match", "match_id", id, "error", err)
			continue
		}
		loaded++
	}

	if loaded > 0 {
		logger.Info("loaded persisted matches", "count", loaded)
	}
	return nil
}

// lookup returns the entry for id, reading it from persistence on a miss
func (s *Store) lookup(ctx context.Context, id string) (*entry, error) {
	s.mu.RLock()
	e, exists := s.matches[id]
	s.mu.RUnlock()
	if exists {
		return e, nil
	}

	if s.persistence == nil {
		return nil, engine.ErrMatchNotFound
	}

	match, err := s.persistence.Load(ctx, id)
	if err != nil {
		if errors.Is(err, engine.ErrMatchNotFound) {
			return nil, engine.ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load persisted match: %w", err)
	}
	if err := match.Validate(s.rules); err != nil {
		return nil, fmt.Errorf("persisted match %s rejected: %w", id, err)
	}

	loaded := &entry{}
	loaded.current.Store(match)

	s.mu.Lock()
	defer s.mu.Unlock()
	// another caller may have loaded it first
	if e, exists := s.matches[id]; exists {
		return e, nil
	}
	s.matches[id] = loaded
	metrics.ActiveMatches.Set(float64(len(s.matches)))
	return loaded, nil
}

func (s *Store) removeEntry(id string, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.matches[id] == e {
		delete(s.matches, id)
		metrics.ActiveMatches.Set(float64(len(s.matches)))
	}
}
