package directory

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pinchat/pinchat/internal/dependencies/clock"
	"github.com/pinchat/pinchat/internal/dependencies/random"
	"github.com/pinchat/pinchat/internal/model"
	"github.com/pinchat/pinchat/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrUsernameExists     = errors.New("username already exists")
)

const (
	// PinBlockLength is the length of each PIN block
	PinBlockLength = 4
	// PinAlphabet is the characters a PIN is drawn from
	PinAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Session represents an authenticated session
type Session struct {
	Token     string
	PIN       model.PIN
	Identity  model.Identity
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Service is the identity directory: it resolves PINs to registered
// identities, validates credentials, and manages session tokens
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random

	mu       sync.RWMutex
	sessions map[string]*Session

	sessionDuration time.Duration
}

// Config holds configuration for the directory service
type Config struct {
	SessionDuration time.Duration
}

// DefaultConfig returns default directory configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 24 * time.Hour,
	}
}

// New creates a new directory service
func New(store storage.Storage, clk clock.Clock, rnd random.Random, cfg Config) *Service {
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = DefaultConfig().SessionDuration
	}
	return &Service{
		storage:         store,
		clock:           clk,
		random:          rnd,
		sessions:        make(map[string]*Session),
		sessionDuration: cfg.SessionDuration,
	}
}

// Register creates an identity with a freshly assigned unique PIN and opens
// a session for it
func (s *Service) Register(ctx context.Context, username, password string) (*Session, error) {
	_, err := s.storage.GetIdentityByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameExists
	}
	if !errors.Is(err, model.ErrIdentityNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	pin, err := s.generatePin(ctx)
	if err != nil {
		return nil, err
	}

	identity := &model.Identity{
		Username:     username,
		PasswordHash: string(hash),
		PIN:          pin,
		CreatedAt:    s.clock.Now(),
	}

	if err := s.storage.SaveIdentity(ctx, identity); err != nil {
		return nil, err
	}

	return s.createSession(identity), nil
}

// Login authenticates a registered identity and creates a session
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	identity, err := s.storage.GetIdentityByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrIdentityNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.createSession(identity), nil
}

// IdentityByPin resolves a PIN to its registered identity
func (s *Service) IdentityByPin(ctx context.Context, pin model.PIN) (*model.Identity, error) {
	return s.storage.GetIdentityByPin(ctx, pin)
}

// ValidateSession checks if a session token is valid and returns the session
func (s *Service) ValidateSession(token string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidSession
	}

	if s.clock.Now().After(session.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return nil, ErrInvalidSession
	}

	return session, nil
}

// InvalidateSession removes a session
func (s *Service) InvalidateSession(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// CleanExpiredSessions removes expired sessions (call periodically)
func (s *Service) CleanExpiredSessions() {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, token)
		}
	}
}

// generatePin produces a PIN that no existing identity holds
func (s *Service) generatePin(ctx context.Context) (model.PIN, error) {
	for {
		pin := model.PIN(s.random.String(PinBlockLength, PinAlphabet) +
			"-" + s.random.String(PinBlockLength, PinAlphabet))
		exists, err := s.storage.PinExists(ctx, pin)
		if err != nil {
			return "", err
		}
		if !exists {
			return pin, nil
		}
	}
}

// createSession creates a new session for an identity
func (s *Service) createSession(identity *model.Identity) *Session {
	token := generateToken()
	now := s.clock.Now()

	session := &Session{
		Token:     token,
		PIN:       identity.PIN,
		Identity:  *identity,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
	}

	s.mu.Lock()
	s.sessions[token] = session
	s.mu.Unlock()

	return session
}

// generateToken generates an opaque session token
func generateToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return "sess_" + base64.RawURLEncoding.EncodeToString(b)
}
