package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"grocery-store/internal/auth"
	"grocery-store/internal/domain"
)

const (
	minPasswordLength = 8
	// maxPasswordLength is the bcrypt input limit in bytes.
	maxPasswordLength = 72
)

// reservedChars cannot appear in stored account fields.
const reservedChars = ",\r\n"

type session struct {
	id   string
	user *domain.User
	cart *domain.Cart
}

func (s *session) info() Session {
	if s.user == nil {
		return Session{ID: s.id, Guest: true}
	}
	return Session{ID: s.id, Name: s.user.Name, Email: s.user.Email}
}

func (s *storefront) openSession(user *domain.User) *session {
	sess := &session{id: uuid.NewString(), user: user}
	if user != nil {
		sess.cart = user.Cart
	} else {
		sess.cart = domain.NewCart()
	}
	s.sessions[sess.id] = sess
	return sess
}

func (s *storefront) lookup(id string) (*session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Register creates an account, persists the users store and opens a session
// for it. If the store cannot be written the account is not kept.
func (s *storefront) Register(ctx context.Context, name, email, password string) (Session, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	switch {
	case name == "":
		return Session{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case email == "":
		return Session{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	case len(password) < minPasswordLength:
		return Session{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	case len(password) > maxPasswordLength:
		return Session{}, fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, maxPasswordLength)
	case strings.ContainsAny(name, reservedChars), strings.ContainsAny(email, reservedChars):
		return Session{}, fmt.Errorf("%w: name and email must not contain commas", ErrInvalidInput)
	}

	credential, err := s.hasher.Hash(password)
	if err != nil {
		return Session{}, err
	}
	if strings.ContainsAny(credential, reservedChars) {
		return Session{}, fmt.Errorf("%w: password contains unsupported characters", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		return Session{}, ErrUserAlreadyExists
	}

	user := domain.NewUser(name, email, credential)
	s.accounts = append(s.accounts, user)
	if err := s.users.Save(ctx, s.accounts); err != nil {
		s.accounts = s.accounts[:len(s.accounts)-1]
		return Session{}, fmt.Errorf("save users: %w", err)
	}
	s.byEmail[email] = user

	s.logger.WithField("email", email).Info("user registered")
	return s.openSession(user).info(), nil
}

// Authenticate opens a session on the user's persisted cart.
func (s *storefront) Authenticate(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byEmail[email]
	if !ok || !auth.Verify(user.Credential, password) {
		return Session{}, ErrInvalidCredentials
	}
	return s.openSession(user).info(), nil
}

// StartGuest opens a session with a fresh cart that is never persisted.
func (s *storefront) StartGuest() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openSession(nil).info()
}

func (s *storefront) Session(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}
	return sess.info(), nil
}

// EndSession forgets the session. A guest cart goes with it; a user's cart
// stays with the account.
func (s *storefront) EndSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
