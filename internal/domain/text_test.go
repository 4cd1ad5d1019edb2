package domain

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "scene", 10, "scene"},
		{"ascii", "focalization", 5, "focal"},
		{"counts characters", "éééé", 2, "éé"},
		{"mixed", "café noir", 4, "café"},
		{"curly quotes", "“Show” it", 6, "“Show”"},
		{"zero", "scene", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.in, tt.n)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
