package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/pinchat/pinchat/internal/dependencies/mocks"
	"github.com/pinchat/pinchat/internal/model"
	"github.com/pinchat/pinchat/internal/testutil"
)

// fakeTransport records every delivery call in order
type fakeTransport struct {
	subscriptions   []subscription
	unsubscriptions []subscription
	unicasts        []unicast
	broadcasts      []broadcast
}

type subscription struct {
	conn model.ConnID
	room model.RoomID
}

type unicast struct {
	conn model.ConnID
	ev   model.Event
}

type broadcast struct {
	room   model.RoomID
	ev     model.Event
	except model.ConnID
}

func (t *fakeTransport) Subscribe(conn model.ConnID, room model.RoomID) {
	t.subscriptions = append(t.subscriptions, subscription{conn, room})
}

func (t *fakeTransport) Unsubscribe(conn model.ConnID, room model.RoomID) {
	t.unsubscriptions = append(t.unsubscriptions, subscription{conn, room})
}

func (t *fakeTransport) Unicast(conn model.ConnID, ev model.Event) {
	t.unicasts = append(t.unicasts, unicast{conn, ev})
}

func (t *fakeTransport) Broadcast(room model.RoomID, ev model.Event, except model.ConnID) {
	t.broadcasts = append(t.broadcasts, broadcast{room, ev, except})
}

// fakeDirectory resolves PINs from a fixed map
type fakeDirectory struct {
	identities map[model.PIN]*model.Identity
}

func (d *fakeDirectory) IdentityByPin(_ context.Context, pin model.PIN) (*model.Identity, error) {
	identity, ok := d.identities[pin]
	if !ok {
		return nil, model.ErrIdentityNotFound
	}
	return identity, nil
}

// fakeLedger records contacts, optionally failing every call
type fakeLedger struct {
	contacts [][2]model.PIN
	err      error
}

func (l *fakeLedger) RecordContact(_ context.Context, owner, peer model.PIN) error {
	if l.err != nil {
		return l.err
	}
	l.contacts = append(l.contacts, [2]model.PIN{owner, peer})
	return nil
}

type RouterSuite struct {
	suite.Suite
	transport *fakeTransport
	directory *fakeDirectory
	ledger    *fakeLedger
	clock     *mocks.MockClock
	router    *Router
	ctx       context.Context

	alice model.Identity
	bob   model.Identity
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.alice = model.Identity{Username: "alice", PIN: "AL12-CE34"}
	s.bob = model.Identity{Username: "bob", PIN: "BO56-BB78"}

	s.transport = &fakeTransport{}
	s.directory = &fakeDirectory{identities: map[model.PIN]*model.Identity{
		s.alice.PIN: &s.alice,
		s.bob.PIN:   &s.bob,
	}}
	s.ledger = &fakeLedger{}
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.router = s.newRouter(DefaultConfig())
	s.ctx = context.Background()
}

func (s *RouterSuite) newRouter(cfg Config) *Router {
	return NewRouter(NewRegistry(), NewMembership(), s.directory, s.ledger,
		s.transport, s.clock, cfg, testutil.NopLogger())
}

// Register tests

func (s *RouterSuite) TestRegisterBindsConnection() {
	s.router.Register(s.ctx, "conn1", &s.alice)

	pin, ok := s.router.registry.LookupPin("conn1")
	s.Require().True(ok)
	s.Equal(s.alice.PIN, pin)
}

func (s *RouterSuite) TestRegisterJoinsPersonalRoom() {
	s.router.Register(s.ctx, "conn1", &s.alice)

	personal := model.PersonalRoom(s.alice.PIN)
	s.True(s.router.members.IsMember("conn1", personal))
	s.Contains(s.transport.subscriptions, subscription{"conn1", personal})
}

func (s *RouterSuite) TestRegisterSendsReadyNotice() {
	s.router.Register(s.ctx, "conn1", &s.alice)

	s.Require().Len(s.transport.unicasts, 1)
	u := s.transport.unicasts[0]
	s.Equal(model.ConnID("conn1"), u.conn)
	s.Equal(model.EventSystemMessage, u.ev.Type)
	s.Equal("Your PIN is AL12-CE34. Ready to connect.", u.ev.Text)
	s.Equal("12:00", u.ev.Time)
}

func (s *RouterSuite) TestRegisterSecondDeviceSamePin() {
	s.router.Register(s.ctx, "conn1", &s.alice)
	s.router.Register(s.ctx, "conn2", &s.alice)

	s.ElementsMatch(
		[]model.ConnID{"conn1", "conn2"},
		s.router.registry.ActiveConnections(s.alice.PIN),
	)
}

// ConnectToPeer tests

func (s *RouterSuite) TestConnectToPeerRequiresRegistration() {
	err := s.router.ConnectToPeer(s.ctx, "conn1", s.bob.PIN)
	s.ErrorIs(err, model.ErrAuthenticationRequired)
}

func (s *RouterSuite) TestConnectToPeerRejectsInvalidPin() {
	s.router.Register(s.ctx, "conn1", &s.alice)

	err := s.router.ConnectToPeer(s.ctx, "conn1", "not-a-pin")
	s.ErrorIs(err, model.ErrInvalidPin)
}

func (s *RouterSuite) TestConnectToPeerRejectsSelf() {
	s.router.Register(s.ctx, "conn1", &s.alice)

	err := s.router.ConnectToPeer(s.ctx, "conn1", s.alice.PIN)
	s.ErrorIs(err, model.ErrSelfConnect)
}

func (s *RouterSuite) TestConnectToPeerRejectsUnknownPin() {
	s.router.Register(s.ctx, "conn1", &s.alice)

	err := s.router.ConnectToPeer(s.ctx, "conn1", "ZZ99-ZZ99")
	s.ErrorIs(err, model.ErrPeerNotFound)
}

func (s *RouterSuite) TestConnectToPeerJoinsSharedRoom() {
	s.router.Register(s.ctx, "conn1", &s.alice)

	err := s.router.ConnectToPeer(s.ctx, "conn1", s.bob.PIN)
	s.Require().NoError(err)

	room, err := model.CanonicalRoom(s.alice.PIN, s.bob.PIN)
	s.Require().NoError(err)
	s.True(s.router.members.IsMember("conn1", room))
	s.Contains(s.transport.subscriptions, subscription{"conn1", room})
}

func (s *RouterSuite) TestConnectToPeerNotifiesBothSides() {
	s.router.Register(s.ctx, "conn1", &s.alice)

	err := s.router.ConnectToPeer(s.ctx, "conn1", s.bob.PIN)
	s.Require().NoError(err)

	// Caller gets a direct confirmation
	s.Require().Len(s.transport.unicasts, 2)
	s.Equal("Connected to BO56-BB78.", s.transport.unicasts[1].ev.Text)

	// Target is notified through its personal room
	s.Require().Len(s.transport.broadcasts, 1)
	b := s.transport.broadcasts[0]
	s.Equal(model.PersonalRoom(s.bob.PIN), b.room)
	s.Equal("AL12-CE34 joined the room.", b.ev.Text)
	s.Equal(model.ConnID("conn1"), b.except)
}

func (s *RouterSuite) TestConnectToPeerRecordsContact() {
	s.router.Register(s.ctx, "conn1", &s.alice)

	err := s.router.ConnectToPeer(s.ctx, "conn1", s.bob.PIN)
	s.Require().NoError(err)

	s.Equal([][2]model.PIN{{s.alice.PIN, s.bob.PIN}}, s.ledger.contacts)
}

func (s *RouterSuite) TestConnectToPeerSucceedsWhenLedgerFails() {
	s.ledger.err = errors.New("storage down")
	s.router.Register(s.ctx, "conn1", &s.alice)

	err := s.router.ConnectToPeer(s.ctx, "conn1", s.bob.PIN)
	s.NoError(err)
}

// SendMessage tests

func (s *RouterSuite) TestSendMessageRejectsEmptyText() {
	s.router.Register(s.ctx, "conn1", &s.alice)

	err := s.router.SendMessage(s.ctx, "conn1", s.bob.PIN, "   ")
	s.ErrorIs(err, model.ErrEmptyMessage)
}

func (s *RouterSuite) TestSendMessageRequiresRegistration() {
	err := s.router.SendMessage(s.ctx, "conn1", s.bob.PIN, "hello")
	s.ErrorIs(err, model.ErrAuthenticationRequired)
	s.Empty(s.transport.broadcasts)
}

func (s *RouterSuite) TestSendMessageRequiresJoinedRoom() {
	s.router.Register(s.ctx, "conn1", &s.alice)

	err := s.router.SendMessage(s.ctx, "conn1", s.bob.PIN, "hello")
	s.ErrorIs(err, model.ErrNotRoomMember)
	s.Empty(s.transport.broadcasts)
}

func (s *RouterSuite) TestSendMessageFansOutToRoom() {
	s.router.Register(s.ctx, "conn1", &s.alice)
	s.Require().NoError(s.router.ConnectToPeer(s.ctx, "conn1", s.bob.PIN))

	err := s.router.SendMessage(s.ctx, "conn1", s.bob.PIN, "hello bob")
	s.Require().NoError(err)

	room, _ := model.CanonicalRoom(s.alice.PIN, s.bob.PIN)
	b := s.transport.broadcasts[len(s.transport.broadcasts)-1]
	s.Equal(room, b.room)
	s.Equal(model.EventReceiveMessage, b.ev.Type)
	s.Equal("alice", b.ev.Sender)
	s.Equal(s.bob.PIN, b.ev.Receiver)
	s.Equal("hello bob", b.ev.Message)
	s.Equal("12:00", b.ev.Time)
	s.Equal(model.ConnID("conn1"), b.except)
}

func (s *RouterSuite) TestSendMessageWithoutJoinWhenPolicyDisabled() {
	router := s.newRouter(Config{RequireJoinOnSend: false})
	router.Register(s.ctx, "conn1", &s.alice)

	err := router.SendMessage(s.ctx, "conn1", s.bob.PIN, "hello")
	s.Require().NoError(err)

	room, _ := model.CanonicalRoom(s.alice.PIN, s.bob.PIN)
	s.Equal(room, s.transport.broadcasts[len(s.transport.broadcasts)-1].room)
}

func (s *RouterSuite) TestSendMessageSenderFallsBackToPin() {
	s.router.Register(s.ctx, "conn1", &s.alice)
	s.Require().NoError(s.router.ConnectToPeer(s.ctx, "conn1", s.bob.PIN))

	// Identity disappears between connect and send
	delete(s.directory.identities, s.alice.PIN)

	err := s.router.SendMessage(s.ctx, "conn1", s.bob.PIN, "hello")
	s.Require().NoError(err)

	b := s.transport.broadcasts[len(s.transport.broadcasts)-1]
	s.Equal("AL12-CE34", b.ev.Sender)
}

// Disconnect tests

func (s *RouterSuite) TestDisconnectUnbindsConnection() {
	s.router.Register(s.ctx, "conn1", &s.alice)

	s.router.Disconnect(s.ctx, "conn1")

	_, ok := s.router.registry.LookupPin("conn1")
	s.False(ok)
}

func (s *RouterSuite) TestDisconnectUnsubscribesAllRooms() {
	s.router.Register(s.ctx, "conn1", &s.alice)
	s.Require().NoError(s.router.ConnectToPeer(s.ctx, "conn1", s.bob.PIN))

	s.router.Disconnect(s.ctx, "conn1")

	room, _ := model.CanonicalRoom(s.alice.PIN, s.bob.PIN)
	s.ElementsMatch(
		[]subscription{
			{"conn1", model.PersonalRoom(s.alice.PIN)},
			{"conn1", room},
		},
		s.transport.unsubscriptions,
	)
	s.False(s.router.members.IsMember("conn1", room))
}

func (s *RouterSuite) TestDisconnectNotifiesPairwiseRoomsOnly() {
	s.router.Register(s.ctx, "conn1", &s.alice)
	s.Require().NoError(s.router.ConnectToPeer(s.ctx, "conn1", s.bob.PIN))
	connectBroadcasts := len(s.transport.broadcasts)

	s.router.Disconnect(s.ctx, "conn1")

	room, _ := model.CanonicalRoom(s.alice.PIN, s.bob.PIN)
	notices := s.transport.broadcasts[connectBroadcasts:]
	s.Require().Len(notices, 1)
	s.Equal(room, notices[0].room)
	s.Equal("AL12-CE34 disconnected.", notices[0].ev.Text)
}

func (s *RouterSuite) TestDisconnectIsIdempotent() {
	s.router.Register(s.ctx, "conn1", &s.alice)
	s.Require().NoError(s.router.ConnectToPeer(s.ctx, "conn1", s.bob.PIN))

	s.router.Disconnect(s.ctx, "conn1")
	unsubs := len(s.transport.unsubscriptions)
	broadcasts := len(s.transport.broadcasts)

	s.router.Disconnect(s.ctx, "conn1")

	s.Len(s.transport.unsubscriptions, unsubs)
	s.Len(s.transport.broadcasts, broadcasts)
}

func (s *RouterSuite) TestDisconnectBeforeRegistration() {
	s.NotPanics(func() {
		s.router.Disconnect(s.ctx, "conn1")
	})
	s.Empty(s.transport.broadcasts)
}

// Full conversation sequence

func (s *RouterSuite) TestTwoPartyConversation() {
	s.router.Register(s.ctx, "alice-conn", &s.alice)
	s.router.Register(s.ctx, "bob-conn", &s.bob)

	s.Require().NoError(s.router.ConnectToPeer(s.ctx, "alice-conn", s.bob.PIN))
	s.Require().NoError(s.router.ConnectToPeer(s.ctx, "bob-conn", s.alice.PIN))

	room, err := model.CanonicalRoom(s.alice.PIN, s.bob.PIN)
	s.Require().NoError(err)

	// Both sides landed in the same room
	s.True(s.router.members.IsMember("alice-conn", room))
	s.True(s.router.members.IsMember("bob-conn", room))

	s.Require().NoError(s.router.SendMessage(s.ctx, "alice-conn", s.bob.PIN, "hi bob"))
	s.Require().NoError(s.router.SendMessage(s.ctx, "bob-conn", s.alice.PIN, "hi alice"))

	// Both messages fanned out on the shared room, each excluding its sender
	n := len(s.transport.broadcasts)
	s.Require().GreaterOrEqual(n, 2)

	first := s.transport.broadcasts[n-2]
	s.Equal(room, first.room)
	s.Equal("alice", first.ev.Sender)
	s.Equal("hi bob", first.ev.Message)
	s.Equal(model.ConnID("alice-conn"), first.except)

	second := s.transport.broadcasts[n-1]
	s.Equal(room, second.room)
	s.Equal("bob", second.ev.Sender)
	s.Equal("hi alice", second.ev.Message)
	s.Equal(model.ConnID("bob-conn"), second.except)
}
