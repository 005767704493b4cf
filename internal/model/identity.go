package model

import (
	"regexp"
	"strings"
	"time"
)

// PIN is the stable, human-shareable identifier for a registered identity,
// in the form XXXX-YYYY with each block drawn from [A-Z0-9].
type PIN string

// ConnID uniquely identifies one live transport connection. A connection is
// independent of identity: it exists from connect to disconnect and is bound
// to at most one PIN during its lifetime.
type ConnID string

var pinPattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// NormalizePin upper-cases and trims a user-supplied PIN string
func NormalizePin(raw string) PIN {
	return PIN(strings.ToUpper(strings.TrimSpace(raw)))
}

// Valid reports whether the PIN matches the XXXX-YYYY format
func (p PIN) Valid() bool {
	return pinPattern.MatchString(string(p))
}

// Identity represents a registered user account
type Identity struct {
	Username     string
	PasswordHash string // bcrypt hash
	PIN          PIN    // assigned at registration, immutable
	CreatedAt    time.Time
}
