package storage

import (
	"context"

	"github.com/pinchat/pinchat/internal/model"
)

// Storage defines the interface for identity and contact persistence
type Storage interface {
	// Identity operations
	SaveIdentity(ctx context.Context, identity *model.Identity) error
	GetIdentityByPin(ctx context.Context, pin model.PIN) (*model.Identity, error)
	GetIdentityByUsername(ctx context.Context, username string) (*model.Identity, error)
	PinExists(ctx context.Context, pin model.PIN) (bool, error)

	// Contact ledger operations. AddContact is a deduplicated append.
	AddContact(ctx context.Context, owner, peer model.PIN) error
	GetContacts(ctx context.Context, owner model.PIN) ([]model.PIN, error)
}
