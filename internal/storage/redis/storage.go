package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pinchat/pinchat/internal/model"
	"github.com/pinchat/pinchat/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Identity operations

func (s *Storage) SaveIdentity(ctx context.Context, identity *model.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return err
	}

	// Pipeline for atomic save + index update
	pipe := s.client.Pipeline()
	pipe.Set(ctx, identityKey(identity.PIN), data, 0)
	pipe.Set(ctx, usernameIndexKey(identity.Username), string(identity.PIN), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetIdentityByPin(ctx context.Context, pin model.PIN) (*model.Identity, error) {
	data, err := s.client.Get(ctx, identityKey(pin)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrIdentityNotFound
		}
		return nil, err
	}

	var identity model.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

func (s *Storage) GetIdentityByUsername(ctx context.Context, username string) (*model.Identity, error) {
	pinStr, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrIdentityNotFound
		}
		return nil, err
	}

	return s.GetIdentityByPin(ctx, model.PIN(pinStr))
}

func (s *Storage) PinExists(ctx context.Context, pin model.PIN) (bool, error) {
	n, err := s.client.Exists(ctx, identityKey(pin)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Contact ledger operations. The ledger is a redis SET per owner, which
// gives deduplication for free.

func (s *Storage) AddContact(ctx context.Context, owner, peer model.PIN) error {
	return s.client.SAdd(ctx, contactsKey(owner), string(peer)).Err()
}

func (s *Storage) GetContacts(ctx context.Context, owner model.PIN) ([]model.PIN, error) {
	members, err := s.client.SMembers(ctx, contactsKey(owner)).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}
	out := make([]model.PIN, len(members))
	for i, m := range members {
		out[i] = model.PIN(m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
