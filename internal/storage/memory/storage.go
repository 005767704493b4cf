package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pinchat/pinchat/internal/model"
	"github.com/pinchat/pinchat/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	identities    map[model.PIN]*model.Identity
	usernameIndex map[string]model.PIN
	contacts      map[model.PIN]map[model.PIN]struct{}
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		identities:    make(map[model.PIN]*model.Identity),
		usernameIndex: make(map[string]model.PIN),
		contacts:      make(map[model.PIN]map[model.PIN]struct{}),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Identity operations

func (s *Storage) SaveIdentity(ctx context.Context, identity *model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[identity.PIN] = identity
	s.usernameIndex[strings.ToLower(identity.Username)] = identity.PIN
	return nil
}

func (s *Storage) GetIdentityByPin(ctx context.Context, pin model.PIN) (*model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[pin]
	if !ok {
		return nil, model.ErrIdentityNotFound
	}
	return identity, nil
}

func (s *Storage) GetIdentityByUsername(ctx context.Context, username string) (*model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pin, ok := s.usernameIndex[strings.ToLower(username)]
	if !ok {
		return nil, model.ErrIdentityNotFound
	}
	identity, ok := s.identities[pin]
	if !ok {
		return nil, model.ErrIdentityNotFound
	}
	return identity, nil
}

func (s *Storage) PinExists(ctx context.Context, pin model.PIN) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.identities[pin]
	return ok, nil
}

// Contact ledger operations

func (s *Storage) AddContact(ctx context.Context, owner, peer model.PIN) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[owner]; !ok {
		s.contacts[owner] = make(map[model.PIN]struct{})
	}
	s.contacts[owner][peer] = struct{}{}
	return nil
}

func (s *Storage) GetContacts(ctx context.Context, owner model.PIN) ([]model.PIN, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	peers := s.contacts[owner]
	if len(peers) == 0 {
		return nil, nil
	}
	out := make([]model.PIN, 0, len(peers))
	for p := range peers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
