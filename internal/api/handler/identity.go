package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pinchat/pinchat/internal/api/apierr"
	"github.com/pinchat/pinchat/internal/api/middleware"
	"github.com/pinchat/pinchat/internal/api/request"
	"github.com/pinchat/pinchat/internal/api/response"
	"github.com/pinchat/pinchat/internal/services/contacts"
	"github.com/pinchat/pinchat/internal/services/directory"
)

// IdentityHandler handles identity-related endpoints
type IdentityHandler struct {
	directory *directory.Service
	contacts  *contacts.Service
}

// NewIdentityHandler creates a new identity handler
func NewIdentityHandler(dir *directory.Service, ledger *contacts.Service) *IdentityHandler {
	return &IdentityHandler{
		directory: dir,
		contacts:  ledger,
	}
}

// Register handles POST /api/v1/identities/register
func (h *IdentityHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Password = strings.TrimSpace(req.Password)
	if req.Username == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("password is required"))
		return
	}

	session, err := h.directory.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	setSessionCookie(w, session)
	response.JSON(w, http.StatusCreated, response.AuthResponseFromSession(session))
}

// Login handles POST /api/v1/identities/login
func (h *IdentityHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("password is required"))
		return
	}

	session, err := h.directory.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	setSessionCookie(w, session)
	response.JSON(w, http.StatusOK, response.AuthResponseFromSession(session))
}

// Logout handles POST /api/v1/identities/logout
func (h *IdentityHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())
	h.directory.InvalidateSession(session.Token)

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	response.NoContent(w)
}

// GetMe handles GET /api/v1/identities/me
func (h *IdentityHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())
	response.JSON(w, http.StatusOK, response.IdentityFromModel(&session.Identity))
}

// GetContacts handles GET /api/v1/identities/me/contacts
func (h *IdentityHandler) GetContacts(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())

	pins, err := h.contacts.ListContacts(r.Context(), session.PIN)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ContactsFromPins(pins))
}

// setSessionCookie mirrors the session token into a cookie so browser
// websocket clients can authenticate without headers
func setSessionCookie(w http.ResponseWriter, session *directory.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
	})
}
