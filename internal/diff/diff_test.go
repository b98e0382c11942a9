package diff

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
)

func TestSynthesize_FirstVersion(t *testing.T) {
	got := Synthesize("anything at all", "")
	assert.Equal(t, []string{core.DiffFirstVersion}, got)
}

func TestSynthesize_NoChange(t *testing.T) {
	text := "BTC holds 60k\nETF inflows steady"
	got := Synthesize(text, text)
	assert.Equal(t, []string{core.DiffNoChange}, got)
}

func TestSynthesize_BoundedAtFive(t *testing.T) {
	got := Synthesize("A\nB\nC\nD\nE\nF\nG", "A\nB")

	want := []string{
		"New point: C",
		"New point: D",
		"New point: E",
		"New point: F",
		"New point: G",
	}
	assert.Equal(t, want, got)
}

func TestSynthesize_CapsAtFiveItems(t *testing.T) {
	got := Synthesize("A\nC\nD\nE\nF\nG\nH\nI", "A")
	require.Len(t, got, core.MaxSynthesizedDifferences)
	assert.Equal(t, "New point: C", got[0])
	assert.Equal(t, "New point: G", got[4])
}

func TestSynthesize_EvolvedWithoutNewLines(t *testing.T) {
	// Same lines, different whitespace and order.
	got := Synthesize("  B\n\nA  ", "A\nB")
	assert.Equal(t, []string{core.DiffEvolvedOnly}, got)
}

func TestSynthesize_TruncatesLongLines(t *testing.T) {
	long := strings.Repeat("é", 250)
	got := Synthesize("old\n"+long, "old")

	require.Len(t, got, 1)
	point := strings.TrimPrefix(got[0], "New point: ")
	assert.Equal(t, core.MaxDifferenceLength, utf8.RuneCountInString(point))
	assert.True(t, utf8.ValidString(point))
}

func TestSynthesize_NeverEmpty(t *testing.T) {
	cases := [][2]string{
		{"", ""},
		{"", "previous"},
		{"x", "x"},
		{"x\ny", "y\nx"},
		{"new", "old"},
	}
	for _, c := range cases {
		got := Synthesize(c[0], c[1])
		assert.NotEmpty(t, got, "current=%q previous=%q", c[0], c[1])
		assert.LessOrEqual(t, len(got), core.MaxSynthesizedDifferences)
	}
}

func TestNewLines_DeduplicatesAndKeepsOrder(t *testing.T) {
	got := NewLines("C\r\nA\nC\n  D  \n\nB", "A\nB")
	assert.Equal(t, []string{"C", "D"}, got)
}
