package notify

import (
	"sync"

	"go.uber.org/zap"
)

// Hub is the registry of open notification connections, at most one per
// account. A new connection for the same account displaces the previous one
// (last-connect-wins; there is no multi-device fan-out).
type Hub struct {
	mu       sync.RWMutex
	sessions map[int64]*Session // accountID → session
	logger   *zap.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		sessions: make(map[int64]*Session),
		logger:   logger,
	}
}

// Register adds a session. If a previous session exists for the same
// account, it is closed first.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.sessions[s.AccountID]; ok {
		old.Close()
		h.logger.Info("duplicate connection displaced",
			zap.Int64("account_id", s.AccountID))
	}
	h.sessions[s.AccountID] = s
	h.logger.Info("notification channel opened",
		zap.Int64("account_id", s.AccountID))
}

// Unregister removes the session for an account, but only if it is still
// the registered one (a displaced session must not evict its replacement).
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.sessions[s.AccountID]; ok && cur == s {
		delete(h.sessions, s.AccountID)
		h.logger.Info("notification channel closed",
			zap.Int64("account_id", s.AccountID))
	}
}

// Get returns the session for an account, or nil if not connected.
func (h *Hub) Get(accountID int64) *Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessions[accountID]
}

// IsOnline reports whether an account currently has an open connection.
func (h *Hub) IsOnline(accountID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[accountID]
	return ok
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// SendToAccount pushes an envelope to the account's open connection.
// It is a no-op returning false when the account is not connected; delivery
// is best-effort and a false return is never an error.
func (h *Hub) SendToAccount(accountID int64, env *Envelope) bool {
	h.mu.RLock()
	s := h.sessions[accountID]
	h.mu.RUnlock()
	if s == nil {
		return false
	}
	return s.Send(env)
}

// Broadcast pushes an envelope to every open connection, tolerating
// individual send failures without aborting the batch.
func (h *Hub) Broadcast(env *Envelope) {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		if !s.Send(env) {
			h.logger.Warn("broadcast dropped for slow or closed connection",
				zap.Int64("account_id", s.AccountID))
		}
	}
}

// CloseAll gracefully closes every open connection (process shutdown).
func (h *Hub) CloseAll() {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.sessions = make(map[int64]*Session)
	h.mu.Unlock()

	h.logger.Info("closing all notification channels", zap.Int("count", len(sessions)))
	for _, s := range sessions {
		s.Close()
	}
}
