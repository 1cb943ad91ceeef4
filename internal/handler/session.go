package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/feiralocal/storefront/internal/cart"
	"github.com/feiralocal/storefront/internal/checkout"
)

// sessionCookie identifies a browser session. The cart and checkout state
// machine live server-side, keyed by this cookie.
const sessionCookie = "storefront_session"

type sessionEntry struct {
	checkout *checkout.Session
	lastSeen time.Time
}

// SessionManager owns the per-browser checkout sessions. Sessions are held
// only in memory; an evicted or restarted session starts with an empty
// cart.
type SessionManager struct {
	orders   checkout.OrderAPI
	payments checkout.PaymentAPI
	sandbox  bool
	ttl      time.Duration

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

// NewSessionManager creates a SessionManager. Sessions idle longer than
// ttl are evicted by the cleanup loop.
func NewSessionManager(orders checkout.OrderAPI, payments checkout.PaymentAPI, sandbox bool, ttl time.Duration) *SessionManager {
	return &SessionManager{
		orders:   orders,
		payments: payments,
		sandbox:  sandbox,
		ttl:      ttl,
		sessions: make(map[string]*sessionEntry),
	}
}

// Get returns the checkout session for the request, creating one (and
// setting the cookie) when none exists.
func (m *SessionManager) Get(w http.ResponseWriter, r *http.Request) *checkout.Session {
	now := time.Now()

	if c, err := r.Cookie(sessionCookie); err == nil {
		m.mu.Lock()
		if e, ok := m.sessions[c.Value]; ok {
			e.lastSeen = now
			m.mu.Unlock()
			return e.checkout
		}
		m.mu.Unlock()
	}

	id := uuid.New().String()
	session := checkout.NewSession(cart.New(), m.orders, m.payments, m.sandbox)

	m.mu.Lock()
	m.sessions[id] = &sessionEntry{checkout: session, lastSeen: now}
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return session
}

// StartCleanup launches a background goroutine that evicts idle sessions
// until ctx is cancelled.
func (m *SessionManager) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				m.evict(now)
			}
		}
	}()
}

func (m *SessionManager) evict(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.sessions {
		if now.Sub(e.lastSeen) >= m.ttl {
			// Invalidate so in-flight results for this session are dropped.
			e.checkout.Reset()
			delete(m.sessions, id)
		}
	}
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
