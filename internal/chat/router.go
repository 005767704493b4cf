package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pinchat/pinchat/internal/dependencies/clock"
	"github.com/pinchat/pinchat/internal/model"
)

// Transport is the delivery layer the router fans messages out through.
// Delivery is fire-and-forget: no acknowledgment, no backpressure, no retry.
type Transport interface {
	Subscribe(conn model.ConnID, room model.RoomID)
	Unsubscribe(conn model.ConnID, room model.RoomID)
	Unicast(conn model.ConnID, ev model.Event)
	// Broadcast delivers ev to the room's current members, skipping except
	// when non-empty.
	Broadcast(room model.RoomID, ev model.Event, except model.ConnID)
}

// Directory resolves PINs to registered identities
type Directory interface {
	IdentityByPin(ctx context.Context, pin model.PIN) (*model.Identity, error)
}

// Ledger records which PINs a PIN has contacted
type Ledger interface {
	RecordContact(ctx context.Context, owner, peer model.PIN) error
}

// Config holds router policy settings
type Config struct {
	// RequireJoinOnSend rejects sends on rooms the sender has not joined.
	// Disabling it makes sends pure best-effort fan-out.
	RequireJoinOnSend bool
}

// DefaultConfig returns the default router configuration
func DefaultConfig() Config {
	return Config{RequireJoinOnSend: true}
}

// Router validates connect/send operations against the connection registry
// and membership tracker, derives canonical rooms, and fans messages out to
// their current members. It drives the per-connection lifecycle
// Anonymous -> Authenticated -> Joined(0..n) -> Disconnected.
type Router struct {
	registry  *Registry
	members   *Membership
	directory Directory
	ledger    Ledger
	transport Transport
	clock     clock.Clock
	cfg       Config
	logger    *slog.Logger
}

// NewRouter creates a room router with the given collaborators
func NewRouter(
	registry *Registry,
	members *Membership,
	directory Directory,
	ledger Ledger,
	transport Transport,
	clk clock.Clock,
	cfg Config,
	logger *slog.Logger,
) *Router {
	return &Router{
		registry:  registry,
		members:   members,
		directory: directory,
		ledger:    ledger,
		transport: transport,
		clock:     clk,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "router")),
	}
}

// Register binds the connection to the identity it authenticated as and
// subscribes it to its personal room. Binding happens once per connection
// lifetime; a connection is never rebound to a different PIN.
func (r *Router) Register(ctx context.Context, conn model.ConnID, identity *model.Identity) {
	r.registry.Bind(identity.PIN, conn)

	personal := model.PersonalRoom(identity.PIN)
	r.members.Join(conn, personal)
	r.transport.Subscribe(conn, personal)

	r.transport.Unicast(conn, model.SystemMessage(
		fmt.Sprintf("Your PIN is %s. Ready to connect.", identity.PIN), r.clock.Now()))

	r.logger.Info("connection registered",
		slog.String("conn", string(conn)),
		slog.String("pin", string(identity.PIN)))
}

// ConnectToPeer joins the caller's connection to the canonical room shared
// with target, records the contact, and notifies both sides. The target is
// notified through its personal room; if it has no live connections the
// notice is silently dropped.
func (r *Router) ConnectToPeer(ctx context.Context, conn model.ConnID, target model.PIN) error {
	callerPin, ok := r.registry.LookupPin(conn)
	if !ok {
		return model.ErrAuthenticationRequired
	}
	if !target.Valid() {
		return model.ErrInvalidPin
	}
	if target == callerPin {
		return model.ErrSelfConnect
	}

	if _, err := r.directory.IdentityByPin(ctx, target); err != nil {
		if errors.Is(err, model.ErrIdentityNotFound) {
			return model.ErrPeerNotFound
		}
		return err
	}

	room, err := model.CanonicalRoom(callerPin, target)
	if err != nil {
		return err
	}

	r.members.Join(conn, room)
	r.transport.Subscribe(conn, room)

	// Best-effort side effect; a ledger failure never fails the connect.
	if err := r.ledger.RecordContact(ctx, callerPin, target); err != nil {
		r.logger.Warn("failed to record contact",
			slog.String("pin", string(callerPin)),
			slog.String("peer", string(target)),
			slog.Any("error", err))
	}

	now := r.clock.Now()
	r.transport.Unicast(conn, model.SystemMessage(
		fmt.Sprintf("Connected to %s.", target), now))
	r.transport.Broadcast(model.PersonalRoom(target), model.SystemMessage(
		fmt.Sprintf("%s joined the room.", callerPin), now), conn)

	r.logger.Info("peer connected",
		slog.String("pin", string(callerPin)),
		slog.String("peer", string(target)),
		slog.String("room", string(room)))
	return nil
}

// SendMessage fans a chat message out to the current members of the caller's
// room with receiver, excluding the caller. Members joining after the
// membership snapshot is taken do not receive the message.
func (r *Router) SendMessage(ctx context.Context, conn model.ConnID, receiver model.PIN, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ErrEmptyMessage
	}

	callerPin, ok := r.registry.LookupPin(conn)
	if !ok {
		return model.ErrAuthenticationRequired
	}

	room, err := model.CanonicalRoom(callerPin, receiver)
	if err != nil {
		return err
	}

	if r.cfg.RequireJoinOnSend && !r.members.IsMember(conn, room) {
		return model.ErrNotRoomMember
	}

	sender := string(callerPin)
	if identity, err := r.directory.IdentityByPin(ctx, callerPin); err == nil {
		sender = identity.Username
	}

	r.transport.Broadcast(room, model.ReceiveMessage(sender, receiver, text, r.clock.Now()), conn)
	return nil
}

// Disconnect runs terminal cleanup for a connection: it unbinds the
// connection, drains its room memberships, unsubscribes it from the
// transport, and tells the remaining members of each pairwise room that the
// PIN disconnected. Safe to invoke more than once; the second call finds
// nothing to clean.
func (r *Router) Disconnect(ctx context.Context, conn model.ConnID) {
	rooms := r.members.TakeAllRooms(conn)
	pin, bound := r.registry.Unbind(conn)

	for _, room := range rooms {
		r.transport.Unsubscribe(conn, room)
		if room.IsPairwise() && bound {
			r.transport.Broadcast(room, model.SystemMessage(
				fmt.Sprintf("%s disconnected.", pin), r.clock.Now()), conn)
		}
	}

	if bound {
		r.logger.Info("connection cleaned up",
			slog.String("conn", string(conn)),
			slog.String("pin", string(pin)),
			slog.Int("rooms", len(rooms)))
	}
}
