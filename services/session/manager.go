package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"freshcart-api/models"
)

// Manager hands out live sessions and fans their events out to subscribers.
// A session is kept in memory until it has been idle long enough to be
// pruned. Every Open re-reads the store and adopts a newer copy saved by
// another process.
type Manager struct {
	store  Store
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session

	subMu  sync.RWMutex
	subs   map[uint64]func(Event)
	nextID uint64
}

func NewManager(store Store, logger *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		logger:   logger,
		sessions: make(map[string]*Session),
		subs:     make(map[uint64]func(Event)),
	}
}

// Open returns the live session for id, loading it from the store or starting
// an empty one.
func (m *Manager) Open(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		m.refresh(ctx, s)
		return s, nil
	}

	state, err := m.store.Load(ctx, id)
	if err != nil && !errors.Is(err, models.ErrRecordNotFound) {
		m.logger.Error("failed to load session", zap.String("session_id", id), zap.Error(err))
		return nil, models.NewExternalError(err)
	}

	s := newSession(id, state, m.store, m.publish)
	m.sessions[id] = s
	return s, nil
}

// refresh replaces the in-memory state when the stored one is newer. A failed
// read keeps serving the in-memory copy.
func (m *Manager) refresh(ctx context.Context, s *Session) {
	stored, err := m.store.Load(ctx, s.id)
	if err != nil && !errors.Is(err, models.ErrRecordNotFound) {
		m.logger.Warn("failed to refresh session", zap.String("session_id", s.id), zap.Error(err))
	}

	s.mu.Lock()
	adopted := err == nil && stored.UpdatedAt.After(s.state.UpdatedAt)
	if adopted {
		s.state = stored
	}
	s.lastUsed = time.Now()
	s.mu.Unlock()

	if adopted {
		m.publish(Event{SessionID: s.id, Kind: EventCartChanged})
	}
}

// Subscribe registers fn for every session event. The returned function
// removes the subscription.
func (m *Manager) Subscribe(fn func(Event)) func() {
	m.subMu.Lock()
	m.nextID++
	id := m.nextID
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) publish(ev Event) {
	m.subMu.RLock()
	fns := make([]func(Event), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Prune drops sessions idle for longer than idle from memory. Their state
// stays in the store.
func (m *Manager) Prune(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	m.mu.Lock()
	defer m.mu.Unlock()

	pruned := 0
	for id, s := range m.sessions {
		s.mu.Lock()
		stale := s.lastUsed.Before(cutoff)
		s.mu.Unlock()
		if stale {
			delete(m.sessions, id)
			pruned++
		}
	}
	return pruned
}

// RunPruner prunes on every tick until ctx is done.
func (m *Manager) RunPruner(ctx context.Context, every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Prune(idle); n > 0 {
				m.logger.Debug("pruned idle sessions", zap.Int("count", n))
			}
		}
	}
}
