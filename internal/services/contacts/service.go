package contacts

import (
	"context"
	"fmt"

	"github.com/pinchat/pinchat/internal/model"
	"github.com/pinchat/pinchat/internal/storage"
)

// Service is the contact ledger: an append-only, deduplicated record of
// which PINs a PIN has contacted
type Service struct {
	storage storage.Storage
}

// New creates a new contact ledger service
func New(store storage.Storage) *Service {
	return &Service{storage: store}
}

// RecordContact appends peer to owner's ledger if not already present
func (s *Service) RecordContact(ctx context.Context, owner, peer model.PIN) error {
	if err := s.storage.AddContact(ctx, owner, peer); err != nil {
		return fmt.Errorf("recording contact %s for %s: %w", peer, owner, err)
	}
	return nil
}

// ListContacts returns the PINs owner has previously contacted
func (s *Service) ListContacts(ctx context.Context, owner model.PIN) ([]model.PIN, error) {
	return s.storage.GetContacts(ctx, owner)
}
