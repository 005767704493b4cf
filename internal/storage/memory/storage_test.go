package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/pinchat/pinchat/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

func (s *StorageSuite) identity(username string, pin model.PIN) *model.Identity {
	return &model.Identity{
		Username:     username,
		PasswordHash: "hash",
		PIN:          pin,
		CreatedAt:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Identity tests

func (s *StorageSuite) TestSaveAndGetByPin() {
	alice := s.identity("alice", "AB12-CD34")
	s.Require().NoError(s.storage.SaveIdentity(s.ctx, alice))

	got, err := s.storage.GetIdentityByPin(s.ctx, "AB12-CD34")
	s.Require().NoError(err)
	s.Equal("alice", got.Username)
}

func (s *StorageSuite) TestGetByPinNotFound() {
	_, err := s.storage.GetIdentityByPin(s.ctx, "AB12-CD34")
	s.ErrorIs(err, model.ErrIdentityNotFound)
}

func (s *StorageSuite) TestGetByUsername() {
	alice := s.identity("Alice", "AB12-CD34")
	s.Require().NoError(s.storage.SaveIdentity(s.ctx, alice))

	got, err := s.storage.GetIdentityByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.PIN("AB12-CD34"), got.PIN)
}

func (s *StorageSuite) TestGetByUsernameNotFound() {
	_, err := s.storage.GetIdentityByUsername(s.ctx, "alice")
	s.ErrorIs(err, model.ErrIdentityNotFound)
}

func (s *StorageSuite) TestPinExists() {
	exists, err := s.storage.PinExists(s.ctx, "AB12-CD34")
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(s.storage.SaveIdentity(s.ctx, s.identity("alice", "AB12-CD34")))

	exists, err = s.storage.PinExists(s.ctx, "AB12-CD34")
	s.Require().NoError(err)
	s.True(exists)
}

// Contact ledger tests

func (s *StorageSuite) TestAddAndGetContacts() {
	s.Require().NoError(s.storage.AddContact(s.ctx, "AB12-CD34", "ZZ99-YY88"))
	s.Require().NoError(s.storage.AddContact(s.ctx, "AB12-CD34", "EE55-FF66"))

	contacts, err := s.storage.GetContacts(s.ctx, "AB12-CD34")
	s.Require().NoError(err)
	s.Equal([]model.PIN{"EE55-FF66", "ZZ99-YY88"}, contacts)
}

func (s *StorageSuite) TestAddContactDeduplicates() {
	s.Require().NoError(s.storage.AddContact(s.ctx, "AB12-CD34", "ZZ99-YY88"))
	s.Require().NoError(s.storage.AddContact(s.ctx, "AB12-CD34", "ZZ99-YY88"))

	contacts, err := s.storage.GetContacts(s.ctx, "AB12-CD34")
	s.Require().NoError(err)
	s.Len(contacts, 1)
}

func (s *StorageSuite) TestGetContactsEmpty() {
	contacts, err := s.storage.GetContacts(s.ctx, "AB12-CD34")
	s.Require().NoError(err)
	s.Nil(contacts)
}
