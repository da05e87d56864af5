package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "chateau_abbreviation",
			input: "Ch. Margaux",
			want:  "Chateau Margaux",
		},
		{
			name:  "domaine_abbreviation",
			input: "Dom. de la Romanee-Conti",
			want:  "Domaine de la Romanee-Conti",
		},
		{
			name:  "case_insensitive",
			input: "CH. LATOUR",
			want:  "Chateau LATOUR",
		},
		{
			name:  "shorthand_vintage_recent",
			input: "Barolo '18",
			want:  "Barolo 2018",
		},
		{
			name:  "shorthand_vintage_old",
			input: "Rioja Gran Reserva '85",
			want:  "Rioja Gran Reserva 1985",
		},
		{
			name:  "initials_expansion",
			input: "J.L. Chave Hermitage",
			want:  "Jean-Louis Chave Hermitage",
		},
		{
			name:  "vieilles_vignes",
			input: "Morgon VV",
			want:  "Morgon Vieilles Vignes",
		},
		{
			name:  "premier_cru",
			input: "Chablis 1er Cru Montmains",
			want:  "Chablis Premier Cru Montmains",
		},
		{
			name:  "whitespace_collapse",
			input: "  Pinot   Noir  ",
			want:  "Pinot Noir",
		},
		{
			name:  "no_rule_matches",
			input: "Screaming Eagle Cabernet Sauvignon",
			want:  "Screaming Eagle Cabernet Sauvignon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Ch. Margaux '15",
		"Dom. Leflaive Puligny 1er Cru",
		"Barolo Riserva VV '96",
		"plain name with nothing to do",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestExpandVintage(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"18", 2018},
		{"00", 2000},
		{"50", 2050},
		{"51", 1951},
		{"85", 1985},
		{"99", 1999},
		{"xx", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandVintage(tt.input), "input %q", tt.input)
	}
}

func TestSearchName(t *testing.T) {
	tests := []struct {
		name     string
		producer string
		wine     string
		want     string
	}{
		{
			name:     "producer_prefixed",
			producer: "Guigal",
			wine:     "Cote-Rotie La Mouline",
			want:     "Guigal Cote-Rotie La Mouline",
		},
		{
			name:     "duplicate_producer_stripped",
			producer: "Guigal",
			wine:     "Guigal Cote-Rotie La Mouline",
			want:     "Guigal Cote-Rotie La Mouline",
		},
		{
			name:     "duplicate_case_insensitive",
			producer: "GUIGAL",
			wine:     "guigal Cote-Rotie",
			want:     "GUIGAL Cote-Rotie",
		},
		{
			name:     "empty_producer",
			producer: "",
			wine:     "Ch. Margaux",
			want:     "Chateau Margaux",
		},
		{
			name:     "empty_name",
			producer: "Dom. Leflaive",
			wine:     "",
			want:     "Domaine Leflaive",
		},
		{
			name:     "name_equals_producer",
			producer: "Krug",
			wine:     "Krug",
			want:     "Krug",
		},
		{
			// Lowercasing "İ" grows it from two bytes to three; the
			// duplicate strip must still slice the original string cleanly.
			name:     "multibyte_rune_before_duplicate",
			producer: "Kavaklidere",
			wine:     "İstanbul Kavaklidere Kalecik Karasi",
			want:     "Kavaklidere İstanbul Kalecik Karasi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SearchName(tt.producer, tt.wine))
		})
	}
}
