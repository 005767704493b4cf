package model

import "errors"

// Common errors used across the application
var (
	// Identity errors
	ErrIdentityNotFound = errors.New("identity not found")

	// Routing errors
	ErrAuthenticationRequired = errors.New("connection has no bound pin")
	ErrPeerNotFound           = errors.New("peer pin not found")
	ErrSelfConnect            = errors.New("cannot connect to own pin")
	ErrNotRoomMember          = errors.New("connection has not joined the room")
	ErrEmptyMessage           = errors.New("message is empty")
	ErrInvalidPin             = errors.New("invalid pin format")
)
