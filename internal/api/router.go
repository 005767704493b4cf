package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pinchat/pinchat/internal/api/apierr"
	"github.com/pinchat/pinchat/internal/api/handler"
	apimiddleware "github.com/pinchat/pinchat/internal/api/middleware"
	"github.com/pinchat/pinchat/internal/middleware"
	"github.com/pinchat/pinchat/internal/services/contacts"
	"github.com/pinchat/pinchat/internal/services/directory"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger    *slog.Logger
	Directory *directory.Service
	Contacts  *contacts.Service
	// ChatHandler serves the websocket endpoint
	ChatHandler http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	identityHandler := handler.NewIdentityHandler(cfg.Directory, cfg.Contacts)

	authMiddleware := apimiddleware.Auth(cfg.Directory)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Identity routes (no auth required for registering/logging in)
	api.HandleFunc("/identities/register", identityHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/identities/login", identityHandler.Login).Methods(http.MethodPost)

	// Protected identity routes
	protected := api.PathPrefix("/identities").Subrouter()
	protected.Use(authMiddleware)
	protected.HandleFunc("/logout", identityHandler.Logout).Methods(http.MethodPost)
	protected.HandleFunc("/me", identityHandler.GetMe).Methods(http.MethodGet)
	protected.HandleFunc("/me/contacts", identityHandler.GetContacts).Methods(http.MethodGet)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Websocket endpoint; the handler authenticates the session itself so
	// browser clients can connect with a cookie or token query parameter.
	r.Handle("/ws", cfg.ChatHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
