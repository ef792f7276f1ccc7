package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Immo Côte d'Azur", "immo-cote-d-azur"},
		{"  Agence   Générale  ", "agence-generale"},
		{"--Paris 15e--", "paris-15e"},
		{"ÉLÉGANCE & Co.", "elegance-co"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}
