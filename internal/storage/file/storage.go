package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pinchat/pinchat/internal/model"
	"github.com/pinchat/pinchat/internal/storage"
)

// Storage persists identities and the contact ledger in a single JSON
// document on disk. A missing or corrupted file degrades to an empty store;
// corruption is logged, never surfaced to callers.
type Storage struct {
	path   string
	logger *slog.Logger

	mu         sync.RWMutex
	identities map[model.PIN]*identityRecord
	contacts   map[model.PIN][]model.PIN
}

type identityRecord struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	PIN          model.PIN `json:"pin"`
	CreatedAt    time.Time `json:"created_at"`
}

type document struct {
	Identities []identityRecord          `json:"identities"`
	Contacts   map[model.PIN][]model.PIN `json:"contacts,omitempty"`
}

// New creates a file-backed storage rooted at path, loading any existing
// document
func New(path string, logger *slog.Logger) *Storage {
	s := &Storage{
		path:       path,
		logger:     logger.With(slog.String("component", "file-storage")),
		identities: make(map[model.PIN]*identityRecord),
		contacts:   make(map[model.PIN][]model.PIN),
	}
	s.load()
	return s
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("could not read store, starting empty",
				slog.String("path", s.path), slog.Any("error", err))
		}
		return
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("corrupted store, starting empty",
			slog.String("path", s.path), slog.Any("error", err))
		return
	}

	for i := range doc.Identities {
		rec := doc.Identities[i]
		s.identities[rec.PIN] = &rec
	}
	for owner, peers := range doc.Contacts {
		s.contacts[owner] = peers
	}
}

// persist writes the current document atomically. Callers must hold the
// write lock.
func (s *Storage) persist() error {
	doc := document{
		Identities: make([]identityRecord, 0, len(s.identities)),
		Contacts:   s.contacts,
	}
	for _, rec := range s.identities {
		doc.Identities = append(doc.Identities, *rec)
	}
	sort.Slice(doc.Identities, func(i, j int) bool {
		return doc.Identities[i].PIN < doc.Identities[j].PIN
	})

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing store: %w", err)
	}
	return nil
}

// Identity operations

func (s *Storage) SaveIdentity(ctx context.Context, identity *model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[identity.PIN] = &identityRecord{
		Username:     identity.Username,
		PasswordHash: identity.PasswordHash,
		PIN:          identity.PIN,
		CreatedAt:    identity.CreatedAt,
	}
	return s.persist()
}

func (s *Storage) GetIdentityByPin(ctx context.Context, pin model.PIN) (*model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.identities[pin]
	if !ok {
		return nil, model.ErrIdentityNotFound
	}
	return rec.toModel(), nil
}

func (s *Storage) GetIdentityByUsername(ctx context.Context, username string) (*model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.identities {
		if strings.EqualFold(rec.Username, username) {
			return rec.toModel(), nil
		}
	}
	return nil, model.ErrIdentityNotFound
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
	for _, p := range s.contacts[owner] {
		if p == peer {
			return nil
		}
	}
	s.contacts[owner] = append(s.contacts[owner], peer)
	return s.persist()
}

func (s *Storage) GetContacts(ctx context.Context, owner model.PIN) ([]model.PIN, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	peers := s.contacts[owner]
	if len(peers) == 0 {
		return nil, nil
	}
	out := make([]model.PIN, len(peers))
	copy(out, peers)
	return out, nil
}

func (r *identityRecord) toModel() *model.Identity {
	return &model.Identity{
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		PIN:          r.PIN,
		CreatedAt:    r.CreatedAt,
	}
}
