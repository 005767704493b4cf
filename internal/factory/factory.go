package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/pinchat/pinchat/internal/chat"
	"github.com/pinchat/pinchat/internal/dependencies/clock"
	"github.com/pinchat/pinchat/internal/dependencies/random"
	"github.com/pinchat/pinchat/internal/services/contacts"
	"github.com/pinchat/pinchat/internal/services/directory"
	"github.com/pinchat/pinchat/internal/storage"
	filestorage "github.com/pinchat/pinchat/internal/storage/file"
	"github.com/pinchat/pinchat/internal/storage/memory"
	redisstorage "github.com/pinchat/pinchat/internal/storage/redis"
	"github.com/pinchat/pinchat/internal/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	StorageTypeFile   = "file"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Directory *directory.Service
	Contacts  *contacts.Service

	// Core
	Registry   *chat.Registry
	Membership *chat.Membership
	Router     *chat.Router
	Hub        *ws.Hub

	// Transport entrypoint
	ChatHandler *ws.Handler
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "file")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// FilePath is the JSON store location (required if StorageType is "file")
	FilePath string
	// DirectoryConfig holds configuration for the identity directory (optional)
	DirectoryConfig directory.Config
	// RouterConfig holds routing policy (optional; zero value means defaults)
	RouterConfig *chat.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	case StorageTypeFile:
		if cfg.FilePath == "" {
			return nil, errors.New("FilePath required when StorageType is file")
		}
		store = filestorage.New(cfg.FilePath, logger)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'file'")
	}

	routerCfg := chat.DefaultConfig()
	if cfg.RouterConfig != nil {
		routerCfg = *cfg.RouterConfig
	}

	return newWithDependencies(store, clock.New(), random.New(), cfg.DirectoryConfig, routerCfg, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	dirCfg directory.Config,
	routerCfg chat.Config,
	logger *slog.Logger,
) *App {
	dir := directory.New(store, clk, rnd, dirCfg)
	ledger := contacts.New(store)

	registry := chat.NewRegistry()
	membership := chat.NewMembership()
	hub := ws.NewHub(logger)
	router := chat.NewRouter(registry, membership, dir, ledger, hub, clk, routerCfg, logger)
	chatHandler := ws.NewHandler(dir, router, hub, clk, logger)

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		Directory:   dir,
		Contacts:    ledger,
		Registry:    registry,
		Membership:  membership,
		Router:      router,
		Hub:         hub,
		ChatHandler: chatHandler,
	}
}
