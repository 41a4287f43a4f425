package session

import (
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/huybank/bankapp/internal/domain"
	"github.com/huybank/bankapp/internal/metrics"
)

// Manager is the single owner of the Session value. All access goes through
// its narrow interface; no other component holds session state.
//
// Expire is idempotent: several in-flight requests observing a 401 at the
// same time destroy the session once and fire the expiry hook once.
type Manager struct {
	mu        sync.Mutex
	current   *domain.Session
	store     *Store
	clock     clockwork.Clock
	onExpired func()
}

func NewManager(store *Store, clock clockwork.Clock) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{store: store, clock: clock}
}

// OnExpired registers the hook fired when the session is destroyed because
// of an authentication failure. The app shell maps it to the
// reset-to-unauthenticated-root transition.
func (m *Manager) OnExpired(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpired = fn
}

// Restore loads a persisted session from disk. Tokens whose expiry claim
// has already passed are discarded along with the stored file.
func (m *Manager) Restore() (domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store == nil {
		return domain.Session{}, false
	}

	sess, err := m.store.Load()
	if err != nil {
		slog.Warn("Failed to load persisted session", "error", err)
		return domain.Session{}, false
	}
	if sess == nil {
		return domain.Session{}, false
	}

	if tokenExpired(sess.BearerToken, m.clock.Now()) {
		slog.Info("Discarding persisted session with expired token", "subject_id", sess.SubjectID)
		if err := m.store.Clear(); err != nil {
			slog.Warn("Failed to clear expired session file", "error", err)
		}
		return domain.Session{}, false
	}

	m.current = sess
	return *sess, true
}

// Establish installs a freshly authenticated session, replacing any
// previous one, and persists it.
func (m *Manager) Establish(sess domain.Session) error {
	sess.BearerToken = NormalizeToken(sess.BearerToken)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = &sess
	if m.store == nil {
		return nil
	}
	return m.store.Save(sess)
}

// Current returns a copy of the live session, if any.
func (m *Manager) Current() (domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return domain.Session{}, false
	}
	return *m.current, true
}

// Token returns the bearer token of the live session.
func (m *Manager) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return "", false
	}
	return m.current.BearerToken, true
}

// Logout destroys the session deliberately. The expiry hook does not fire.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clear()
}

// Expire destroys the session in reaction to an authentication failure and
// fires the expiry hook. Calling it without a live session is a no-op, so
// concurrent 401s collapse into a single logout.
func (m *Manager) Expire() {
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		return
	}
	subjectID := m.current.SubjectID
	m.clear()
	hook := m.onExpired
	m.mu.Unlock()

	slog.Warn("Session expired, forcing logout", "subject_id", subjectID)
	metrics.SessionExpiriesTotal.Inc()
	if hook != nil {
		hook()
	}
}

// clear wipes in-memory and persisted session state. Caller holds the lock.
func (m *Manager) clear() {
	m.current = nil
	if m.store == nil {
		return
	}
	if err := m.store.Clear(); err != nil {
		slog.Warn("Failed to clear session file", "error", err)
	}
}
