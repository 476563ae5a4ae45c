package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/compress"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/frames"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/ghost"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
)

// Manager tracks the live capture sessions of this process and mirrors their
// lifecycle into the redis registry so reconnecting clients can find them.
type Manager struct {
	provider  DeviceProvider
	extractor *frames.Extractor
	locator   ghost.Locator
	store     *Store
	budget    compress.Options
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

type ManagerConfig struct {
	Provider  DeviceProvider
	Extractor *frames.Extractor
	Locator   ghost.Locator
	Store     *Store
	Budget    compress.Options
	Logger    *slog.Logger
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Provider == nil {
		cfg.Provider = NewLeaseProvider(cfg.Logger)
	}
	if cfg.Extractor == nil {
		cfg.Extractor = frames.NewExtractor(cfg.Logger)
	}

	return &Manager{
		provider:  cfg.Provider,
		extractor: cfg.Extractor,
		locator:   cfg.Locator,
		store:     cfg.Store,
		budget:    cfg.Budget,
		logger:    cfg.Logger.With("component", "capture-manager"),
		sessions:  make(map[string]*Session),
	}
}

// Open creates a session and acquires its first stream. If acquisition fails
// the session is closed immediately and the error surfaced: a session never
// outlives a failed start.
func (m *Manager) Open(ctx context.Context, ownerID, deviceID string, mode shared.SessionMode) (*Session, error) {
	sess := NewSession(SessionConfig{
		OwnerID:   ownerID,
		Provider:  m.provider,
		Extractor: m.extractor,
		Locator:   m.locator,
		Budget:    m.budget,
		Logger:    m.logger,
	})

	if err := sess.Start(ctx, deviceID, mode); err != nil {
		_ = sess.Close()
		return nil, err
	}

	m.mu.Lock()
	m.sessions[sess.ID()] = sess
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.SaveSession(ctx, RecordFromSession(sess)); err != nil {
			m.logger.Warn("session registry write failed", "session_id", sess.ID(), "error", err)
		}
	}

	m.logger.Info("capture session opened", "session_id", sess.ID(), "owner_id", ownerID, "mode", sess.Mode())
	return sess, nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// GetOwned fetches a session and enforces ownership.
func (m *Manager) GetOwned(id, ownerID string) (*Session, error) {
	sess, ok := m.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: session %s", shared.ErrNotFound, id)
	}
	if sess.OwnerID() != ownerID {
		return nil, fmt.Errorf("%w: session %s", shared.ErrNotFound, id)
	}
	return sess, nil
}

// CloseSession closes a session and removes it from the registry.
func (m *Manager) CloseSession(ctx context.Context, id string) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if sess == nil {
		return
	}
	_ = sess.Close()

	if m.store != nil {
		if err := m.store.DeleteSession(ctx, id); err != nil {
			m.logger.Warn("session registry delete failed", "session_id", id, "error", err)
		}
	}
}

// Touch refreshes the registry record after session activity.
func (m *Manager) Touch(ctx context.Context, sess *Session) {
	if m.store == nil {
		return
	}
	if err := m.store.SaveSession(ctx, RecordFromSession(sess)); err != nil {
		m.logger.Warn("session registry write failed", "session_id", sess.ID(), "error", err)
	}
}

func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		_ = s.Close()
	}
	return nil
}
