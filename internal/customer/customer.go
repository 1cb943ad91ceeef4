// Package customer implements account flows (login by email or CPF,
// registration) and the process-wide customer session.
package customer

import (
	"context"
	"regexp"
	"strings"

	"github.com/go-faster/errors"

	"github.com/feiralocal/storefront/internal/backend"
)

// Validation errors. Rejected locally before any network call.
var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrInvalidCPF   = errors.New("CPF must contain 11 digits")
	ErrMissingField = errors.New("missing required field")
)

// ErrAccountNotFound is returned when no account matches the identifier.
var ErrAccountNotFound = errors.New("account not found")

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var nonDigits = regexp.MustCompile(`[^\d]`)

// ValidateEmail checks the identifier has an email shape.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// NormalizeCPF strips punctuation from a CPF and verifies it has exactly
// 11 digits.
func NormalizeCPF(cpf string) (string, error) {
	digits := nonDigits.ReplaceAllString(cpf, "")
	if len(digits) != 11 {
		return "", ErrInvalidCPF
	}
	return digits, nil
}

// AccountAPI is the slice of the backend client account flows need.
type AccountAPI interface {
	CustomerByEmail(ctx context.Context, email string) (*backend.Customer, error)
	CustomerByCPF(ctx context.Context, cpf string) (*backend.Customer, error)
	CreateCustomer(ctx context.Context, nc backend.NewCustomer) (*backend.Customer, error)
}

// Service wires account lookups to the session.
type Service struct {
	api     AccountAPI
	session *Session
}

// NewService creates a Service that records successful logins in session.
func NewService(api AccountAPI, session *Session) *Service {
	return &Service{api: api, session: session}
}

// LoginByEmail validates the email locally, looks up the account, and
// starts a session for it.
func (s *Service) LoginByEmail(ctx context.Context, email string) (*backend.Customer, error) {
	email = strings.TrimSpace(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	return s.login(s.api.CustomerByEmail(ctx, email))
}

// LoginByCPF validates and normalizes the CPF locally, looks up the
// account, and starts a session for it.
func (s *Service) LoginByCPF(ctx context.Context, cpf string) (*backend.Customer, error) {
	digits, err := NormalizeCPF(cpf)
	if err != nil {
		return nil, err
	}
	return s.login(s.api.CustomerByCPF(ctx, digits))
}

func (s *Service) login(c *backend.Customer, err error) (*backend.Customer, error) {
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, errors.Wrap(err, "lookup account")
	}
	if c.ID == "" {
		return nil, ErrAccountNotFound
	}
	s.session.Login(c)
	return c, nil
}

// Register validates the payload locally, creates the account, and starts
// a session for it.
func (s *Service) Register(ctx context.Context, nc backend.NewCustomer) (*backend.Customer, error) {
	if nc.Name == "" || nc.Email == "" || nc.Phone == "" || nc.CPF == "" {
		return nil, ErrMissingField
	}
	if err := ValidateEmail(nc.Email); err != nil {
		return nil, err
	}
	digits, err := NormalizeCPF(nc.CPF)
	if err != nil {
		return nil, err
	}
	nc.CPF = digits

	c, err := s.api.CreateCustomer(ctx, nc)
	if err != nil {
		return nil, errors.Wrap(err, "create account")
	}
	s.session.Login(c)
	return c, nil
}

// Logout ends the current session.
func (s *Service) Logout() {
	s.session.Logout()
}

// Current returns the logged-in customer, or nil.
func (s *Service) Current() *backend.Customer {
	return s.session.Current()
}
