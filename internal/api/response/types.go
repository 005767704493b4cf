package response

import (
	"github.com/pinchat/pinchat/internal/model"
	"github.com/pinchat/pinchat/internal/services/directory"
)

// Identity represents an identity in API responses. The password hash never
// leaves the server.
type Identity struct {
	Username string `json:"username"`
	Pin      string `json:"pin"`
}

// IdentityFromModel converts a model.Identity to a response Identity
func IdentityFromModel(i *model.Identity) Identity {
	return Identity{
		Username: i.Username,
		Pin:      string(i.PIN),
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Identity     Identity `json:"identity"`
	SessionToken string   `json:"session_token"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *directory.Session) AuthResponse {
	return AuthResponse{
		Identity:     IdentityFromModel(&s.Identity),
		SessionToken: s.Token,
	}
}

// ContactsResponse lists the PINs an identity has contacted
type ContactsResponse struct {
	Contacts []string `json:"contacts"`
}

// ContactsFromPins converts a PIN slice
func ContactsFromPins(pins []model.PIN) ContactsResponse {
	contacts := make([]string, len(pins))
	for i, p := range pins {
		contacts[i] = string(p)
	}
	return ContactsResponse{Contacts: contacts}
}
