package ws

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/pinchat/pinchat/internal/chat"
	"github.com/pinchat/pinchat/internal/dependencies/clock"
	"github.com/pinchat/pinchat/internal/model"
	"github.com/pinchat/pinchat/internal/services/directory"
)

// Handler upgrades HTTP requests to websocket connections and pumps inbound
// events into the room router
type Handler struct {
	directory *directory.Service
	router    *chat.Router
	hub       *Hub
	clock     clock.Clock
	logger    *slog.Logger
	upgrader  websocket.Upgrader
}

// NewHandler creates a websocket handler
func NewHandler(dir *directory.Service, router *chat.Router, hub *Hub, clk clock.Clock, logger *slog.Logger) *Handler {
	return &Handler{
		directory: dir,
		router:    router,
		hub:       hub,
		clock:     clk,
		logger:    logger.With(slog.String("component", "ws")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients are served from anywhere; auth is by session
			// token, not origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP handles GET /ws
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session, err := h.directory.ValidateSession(extractToken(r))
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", slog.Any("error", err))
		return
	}

	client := NewClient(newConnID(), conn, h.logger)
	h.hub.Add(client)
	go client.writePump()

	client.readPump(func(data []byte) {
		h.dispatch(r, client, session, data)
	})

	// Connection dropped: run registry/membership cleanup, then drop the
	// client from the hub.
	h.router.Disconnect(r.Context(), client.ID())
	h.hub.Remove(client.ID())
}

// dispatch routes one inbound envelope. Failures are surfaced to the
// requesting connection as a system_message, never as a fatal fault.
func (h *Handler) dispatch(r *http.Request, client *Client, session *directory.Session, data []byte) {
	ctx := r.Context()

	var in model.Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		h.notify(client, "Malformed event.")
		return
	}

	switch in.Type {
	case model.EventRegisterUser:
		h.router.Register(ctx, client.ID(), &session.Identity)

	case model.EventConnectToUser:
		target := model.NormalizePin(in.Target)
		if target == "" {
			h.notify(client, "Target PIN is required.")
			return
		}
		if err := h.router.ConnectToPeer(ctx, client.ID(), target); err != nil {
			h.notify(client, noticeText(err))
		}

	case model.EventSendMessage:
		receiver := model.NormalizePin(in.Receiver)
		if receiver == "" {
			h.notify(client, "Receiver PIN is required.")
			return
		}
		if err := h.router.SendMessage(ctx, client.ID(), receiver, in.Message); err != nil {
			h.notify(client, noticeText(err))
		}

	default:
		h.notify(client, "Unknown event type.")
	}
}

// notify sends a system notice to one client
func (h *Handler) notify(client *Client, text string) {
	h.hub.Unicast(client.ID(), model.SystemMessage(text, h.clock.Now()))
}

// noticeText maps routing errors to the text shown to the requesting user
func noticeText(err error) string {
	switch {
	case errors.Is(err, model.ErrAuthenticationRequired):
		return "Register your PIN first."
	case errors.Is(err, model.ErrPeerNotFound):
		return "The target PIN does not exist."
	case errors.Is(err, model.ErrSelfConnect):
		return "You cannot connect to your own PIN."
	case errors.Is(err, model.ErrNotRoomMember):
		return "Connect to this PIN before sending messages."
	case errors.Is(err, model.ErrEmptyMessage):
		return "Message is empty."
	case errors.Is(err, model.ErrInvalidPin):
		return "Invalid PIN format."
	default:
		return "Something went wrong."
	}
}

// extractToken pulls the session token from the Authorization header, the
// session cookie, or the token query parameter (browser WebSocket clients
// cannot set headers).
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	if cookie, err := r.Cookie("session"); err == nil {
		return cookie.Value
	}

	return r.URL.Query().Get("token")
}

// newConnID generates an opaque connection identifier
func newConnID() model.ConnID {
	b := make([]byte, 9)
	_, _ = rand.Read(b)
	return model.ConnID("c_" + base64.RawURLEncoding.EncodeToString(b))
}
