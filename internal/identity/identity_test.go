package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{" Sofa  Grand ", "sofa grand"},
		{"sofa grand", "sofa grand"},
		{"Sofa Grand.", "sofa grand"},
		{"\"Chair Basic\";", "chair basic"},
		{"Диван УГЛОВОЙ", "диван угловой"},
		{"Table (oak)", "table (oak"},
		{"...", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeProperty(t *testing.T) {
	a := Normalize(" Sofa  Grand ")
	assert.Equal(t, a, Normalize("sofa grand"))
	assert.Equal(t, a, Normalize("Sofa Grand."))
}

func TestMatchIsExactOnly(t *testing.T) {
	assert.True(t, Match("Chair Basic", "chair  basic"))
	assert.False(t, Match("Chair Basic", "Chiar Basic"))
	assert.False(t, Match("Chair Basic", "Chair Basics"))
}

func TestNormalizeComposedForms(t *testing.T) {
	// "й" as one code point vs "и" + combining breve.
	assert.Equal(t, Normalize("Буфет зеркальны\u0439"), Normalize("Буфет зеркальны\u0438\u0306"))
}
