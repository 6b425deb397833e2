// internal/guide/manager.go
package guide

import (
	"sync"
	"time"

	apperrors "github.com/Corphon/ArtVistas/internal/errors"
	"github.com/Corphon/ArtVistas/internal/utils"
	"go.uber.org/zap"
)

// DefaultSessionTTL is how long an idle session survives without activity.
const DefaultSessionTTL = 30 * time.Minute

// ManagerConfig holds the settings shared by every session a Manager creates.
type ManagerConfig struct {
	SessionTTL time.Duration
	Timeout    time.Duration
	Window     ContextWindow
	// ConfigError explains a nil generator to visitors who try to submit.
	ConfigError error
	Logger      *zap.Logger
}

// Manager owns the live sessions and evicts the ones left idle past the TTL.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	gen       Generator
	cfg       ManagerConfig
	observers []Observer
	logger    *zap.Logger
	now       func() time.Time

	cleanupTicker *time.Ticker
	stop          chan struct{}
	stopOnce      sync.Once
}

// NewManager starts a manager and its background cleanup. gen may be nil, in
// which case sessions are created but cannot submit.
func NewManager(gen Generator, cfg ManagerConfig) *Manager {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Window == nil {
		cfg.Window = Unbounded{}
	}
	m := &Manager{
		sessions: make(map[string]*Session),
		gen:      gen,
		cfg:      cfg,
		logger:   utils.OrNop(cfg.Logger),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	m.startCleanup()
	return m
}

// Subscribe registers fn for events of every session created afterwards.
func (m *Manager) Subscribe(fn Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Create opens a session with persona p.
func (m *Manager) Create(p Persona) (*Session, error) {
	if !p.Valid() {
		return nil, apperrors.NewValidationError("unknown persona "+string(p), nil)
	}

	m.mu.Lock()
	opts := []Option{
		WithPersona(p),
		WithContextWindow(m.cfg.Window),
		WithTimeout(m.cfg.Timeout),
		WithLogger(m.logger),
		WithConfigurationError(m.cfg.ConfigError),
		WithClock(m.now),
	}
	for _, fn := range m.observers {
		opts = append(opts, WithObserver(fn))
	}
	s := NewSession(m.gen, opts...)
	m.sessions[s.ID()] = s
	count := len(m.sessions)
	m.mu.Unlock()

	utils.MetricsSetGuideSessions(count)
	m.logger.Info("guide session created",
		zap.String("session_id", s.ID()),
		zap.String("persona", string(p)))
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFoundError("guide session not found: "+id, nil)
	}
	return s, nil
}

// Delete closes and forgets the session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return apperrors.NewNotFoundError("guide session not found: "+id, nil)
	}
	s.Close()
	utils.MetricsSetGuideSessions(count)
	m.logger.Info("guide session closed", zap.String("session_id", id))
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops the cleanup loop and closes every session.
func (m *Manager) Close() {
	m.stopOnce.Do(func() {
		close(m.stop)
		if m.cleanupTicker != nil {
			m.cleanupTicker.Stop()
		}
	})

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	utils.MetricsSetGuideSessions(0)
}

func (m *Manager) startCleanup() {
	interval := m.cfg.SessionTTL / 2
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	if interval < time.Second {
		interval = time.Second
	}
	m.cleanupTicker = time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-m.cleanupTicker.C:
				m.evictIdle()
			case <-m.stop:
				return
			}
		}
	}()
}

// evictIdle closes sessions untouched for longer than the TTL. Sessions with
// a request in flight are kept until it resolves.
func (m *Manager) evictIdle() int {
	now := m.now()

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.State() == StateAwaitingResponse {
			continue
		}
		if now.Sub(s.UpdatedAt()) > m.cfg.SessionTTL {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		utils.MetricsSetGuideSessions(count)
		m.logger.Info("evicted idle guide sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}
