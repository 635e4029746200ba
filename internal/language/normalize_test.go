package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en", "English"},
		{"EN", "English"},
		{"eng", "English"},
		{"fr", "French"},
		{"fra", "French"},
		{"fre", "French"},
		{"de", "German"},
		{"ger", "German"},
		{"deu", "German"},
		{"ja", "Japanese"},
		{"jpn", "Japanese"},
		{"es", "Spanish"},
		{"spa", "Spanish"},
		{"dut", "Dutch"},
		{" eng ", "English"},
		{"", Unknown},
		{"und", Unknown},
		{"mul", Unknown},
		{"zxx", Unknown},
		{"qaa", Unknown},
		{"xx", Unknown},
		{"french", "French"},
		{"English", "English"},
		{"brazilian portuguese", "Brazilian portuguese"},
		{"old FRENCH", "Old FRENCH"},
		{"élvish", "Élvish"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("eng", "en"))
	assert.True(t, Equal("fre", "fra"))
	assert.True(t, Equal("ger", "German"))
	assert.False(t, Equal("eng", "fra"))
	assert.False(t, Equal("und", "und"), "unknown never matches")
	assert.False(t, Equal("", ""))
}
