package customer

import (
	"encoding/json"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/feiralocal/storefront/internal/backend"
)

// Store persists the authenticated customer between restarts. Persistence
// is best-effort: callers treat failures as non-fatal.
type Store interface {
	Load() (*backend.Customer, error)
	Save(c *backend.Customer) error
	Clear() error
}

// FileStore keeps the customer record as a JSON file.
type FileStore struct {
	Path string
}

// storedCustomer is the on-disk shape. Field names match the backend wire
// so the file stays readable next to API payloads.
type storedCustomer struct {
	ID      string `json:"id"`
	Name    string `json:"nome"`
	Email   string `json:"email"`
	Phone   string `json:"telefone"`
	CPF     string `json:"cpf"`
	Address string `json:"endereco"`
	City    string `json:"cidade"`
	State   string `json:"estado"`
	CEP     string `json:"cep"`
}

// Load reads the stored customer. A missing file returns (nil, nil).
func (f *FileStore) Load() (*backend.Customer, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var sc storedCustomer
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &backend.Customer{
		ID:        sc.ID,
		Name:      sc.Name,
		Email:     sc.Email,
		Phone:     sc.Phone,
		CPF:       sc.CPF,
		Address:   sc.Address,
		City:      sc.City,
		State:     sc.State,
		PostalCode: sc.CEP,
	}, nil
}

// Save writes the customer record with owner-only permissions.
func (f *FileStore) Save(c *backend.Customer) error {
	data, err := json.Marshal(storedCustomer{
		ID:      c.ID,
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		CPF:     c.CPF,
		Address: c.Address,
		City:    c.City,
		State:   c.State,
		CEP:     c.PostalCode,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(f.Path, data, 0o600)
}

// Clear removes the stored record. Missing file is not an error.
func (f *FileStore) Clear() error {
	err := os.Remove(f.Path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Session is the process-wide customer session: an explicit object with
// hydrate, login and logout entry points rather than ambient globals.
type Session struct {
	lg    *zap.Logger
	store Store

	mu      sync.RWMutex
	current *backend.Customer
}

// NewSession creates a Session backed by store. A nil store disables
// persistence.
func NewSession(store Store, lg *zap.Logger) *Session {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Session{store: store, lg: lg}
}

// Hydrate loads a previously persisted customer, if any. A corrupt record
// is cleared and ignored.
func (s *Session) Hydrate() {
	if s.store == nil {
		return
	}
	c, err := s.store.Load()
	if err != nil {
		s.lg.Warn("Discarding stored session", zap.Error(err))
		if err := s.store.Clear(); err != nil {
			s.lg.Warn("Clear stored session", zap.Error(err))
		}
		return
	}
	if c == nil {
		return
	}
	s.mu.Lock()
	s.current = c
	s.mu.Unlock()
	s.lg.Info("Session hydrated", zap.String("customer_id", c.ID))
}

// Login sets the current customer and persists it best-effort.
func (s *Session) Login(c *backend.Customer) {
	s.mu.Lock()
	s.current = c
	s.mu.Unlock()
	if s.store != nil {
		if err := s.store.Save(c); err != nil {
			s.lg.Warn("Persist session", zap.Error(err))
		}
	}
}

// Logout clears the current customer and the persisted record.
func (s *Session) Logout() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	if s.store != nil {
		if err := s.store.Clear(); err != nil {
			s.lg.Warn("Clear stored session", zap.Error(err))
		}
	}
}

// Current returns the logged-in customer, or nil.
func (s *Session) Current() *backend.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Authenticated reports whether a customer is logged in.
func (s *Session) Authenticated() bool {
	return s.Current() != nil
}
