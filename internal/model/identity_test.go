package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPinValid(t *testing.T) {
	tests := []struct {
		name string
		pin  PIN
		want bool
	}{
		{"letters and digits", "AB12-CD34", true},
		{"all letters", "ABCD-EFGH", true},
		{"all digits", "1234-5678", true},
		{"lowercase", "ab12-cd34", false},
		{"missing hyphen", "AB12CD34", false},
		{"short block", "AB1-CD34", false},
		{"long block", "AB123-CD34", false},
		{"extra block", "AB12-CD34-EF56", false},
		{"empty", "", false},
		{"whitespace", " AB12-CD34", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pin.Valid())
		})
	}
}

func TestNormalizePin(t *testing.T) {
	assert.Equal(t, PIN("AB12-CD34"), NormalizePin("ab12-cd34"))
	assert.Equal(t, PIN("AB12-CD34"), NormalizePin("  AB12-CD34\n"))
	assert.Equal(t, PIN(""), NormalizePin("   "))
}
