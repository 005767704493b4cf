package model

import "strings"

// RoomID names a broadcast group. It is either a pairwise chat room derived
// from two PINs, or a personal room equal to a PIN string, used to address
// whoever is currently connected as that PIN.
type RoomID string

const pairwiseRoomPrefix = "room_"

// CanonicalRoom derives the pairwise room id for two distinct PINs. The id is
// commutative: CanonicalRoom(a, b) == CanonicalRoom(b, a). Ordering uses the
// full hyphenated PIN strings; hyphens are stripped only when building the id.
func CanonicalRoom(a, b PIN) (RoomID, error) {
	if a == b {
		return "", ErrSelfConnect
	}
	if b < a {
		a, b = b, a
	}
	return RoomID(pairwiseRoomPrefix + stripHyphen(a) + "_" + stripHyphen(b)), nil
}

// PersonalRoom returns the personal room id for a PIN
func PersonalRoom(p PIN) RoomID {
	return RoomID(p)
}

// IsPairwise reports whether the room is a pairwise chat room, as opposed to
// a personal room
func (r RoomID) IsPairwise() bool {
	return strings.HasPrefix(string(r), pairwiseRoomPrefix)
}

func stripHyphen(p PIN) string {
	return strings.ReplaceAll(string(p), "-", "")
}
