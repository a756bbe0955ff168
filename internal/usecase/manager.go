package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"CoinChart/internal/chart/series"
	xlogger "CoinChart/pkg/logger"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many sessions")
)

const DefaultWidth = 1200

// SessionManager owns the live chart sessions.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	deps     SessionDeps
	catalog  *SymbolCatalog
	max      int
	logger   *xlogger.Logger
}

// NewSessionManager creates a manager. max <= 0 means no limit.
func NewSessionManager(deps SessionDeps, catalog *SymbolCatalog, max int) *SessionManager {
	logger := deps.Logger
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		deps:     deps,
		catalog:  catalog,
		max:      max,
		logger:   logger,
	}
}

// Catalog returns the shared symbol catalog.
func (m *SessionManager) Catalog() *SymbolCatalog { return m.catalog }

// Create opens a session and loads its first symbol. The session is returned
// even when the load fails; the failure is also kept in its status.
func (m *SessionManager) Create(ctx context.Context, symbol string, width, height float64) (*Session, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = series.DefaultHeight
	}

	m.mu.Lock()
	if m.max > 0 && len(m.sessions) >= m.max {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: limit %d", ErrTooManySessions, m.max)
	}
	id := uuid.NewString()
	s, err := NewSession(id, width, height, m.deps)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.sessions[id] = s
	m.mu.Unlock()

	m.catalog.Refresh(ctx)
	symbol = m.catalog.Reconcile(symbol)
	m.logger.Info("session created",
		xlogger.String("session", id),
		xlogger.String("symbol", symbol),
	)
	return s, s.SelectSymbol(ctx, symbol)
}

func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Delete closes and forgets a session.
func (m *SessionManager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.Close()
	m.logger.Info("session closed", xlogger.String("session", id))
	return nil
}

// IDs returns the live session ids, sorted.
func (m *SessionManager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close closes every session.
func (m *SessionManager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
