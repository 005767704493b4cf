package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalRoom(t *testing.T) {
	tests := []struct {
		name string
		a    PIN
		b    PIN
		want RoomID
	}{
		{
			name: "already ordered",
			a:    "AB12-CD34",
			b:    "ZZ99-YY88",
			want: "room_AB12CD34_ZZ99YY88",
		},
		{
			name: "reversed order",
			a:    "ZZ99-YY88",
			b:    "AB12-CD34",
			want: "room_AB12CD34_ZZ99YY88",
		},
		{
			name: "digits sort before letters",
			a:    "AAAA-AAAA",
			b:    "0000-0000",
			want: "room_00000000_AAAAAAAA",
		},
		{
			name: "differs only in last block",
			a:    "AAAA-BBBB",
			b:    "AAAA-AAAA",
			want: "room_AAAAAAAA_AAAABBBB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalRoom(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalRoomIsCommutative(t *testing.T) {
	ab, err := CanonicalRoom("QQ11-WW22", "EE33-RR44")
	require.NoError(t, err)
	ba, err := CanonicalRoom("EE33-RR44", "QQ11-WW22")
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
}

func TestCanonicalRoomRejectsSamePin(t *testing.T) {
	_, err := CanonicalRoom("AB12-CD34", "AB12-CD34")
	assert.ErrorIs(t, err, ErrSelfConnect)
}

func TestPersonalRoom(t *testing.T) {
	assert.Equal(t, RoomID("AB12-CD34"), PersonalRoom("AB12-CD34"))
}

func TestRoomIDIsPairwise(t *testing.T) {
	room, err := CanonicalRoom("AB12-CD34", "ZZ99-YY88")
	require.NoError(t, err)

	assert.True(t, room.IsPairwise())
	assert.False(t, PersonalRoom("AB12-CD34").IsPairwise())
}
