package lexstat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountRunes(t *testing.T) {
	counts, err := CountRunes(strings.NewReader("abc\nABB\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, counts['c'])
	assert.Equal(t, 2, counts['a'])
	assert.Equal(t, 3, counts['b'])
}

func TestBuildAlphabet(t *testing.T) {
	counts := map[rune]int{'a': 5, 'b': 3, 'c': 1}
	a, entries := BuildAlphabet(counts, 1, 0, false)
	// 'c' has freq 1 <= clip 1, dropped.
	_, hasC := a.Codes['c']
	assert.False(t, hasC)
	_, hasA := a.Codes['a']
	assert.True(t, hasA)
	// reserved entries always present, in front.
	assert.Equal(t, "*", entries[0].Sym)
	assert.Equal(t, "$", entries[1].Sym)
	// 'a' (freq 5) is assigned before 'b' (freq 3): descending-frequency order.
	var symOrder []string
	for _, e := range entries[2:] {
		symOrder = append(symOrder, e.Sym)
	}
	assert.Equal(t, []string{"a", "b"}, symOrder)
}

func TestBuildAlphabetSeparator(t *testing.T) {
	counts := map[rune]int{'a': 5}
	a, entries := BuildAlphabet(counts, 0, '_', true)
	assert.True(t, a.HasSep)
	assert.Equal(t, '_', a.Separator)
	assert.Equal(t, "_", entries[2].Sym)
}

// Lexstat at depth 1 for the pair a~b must emit |3125 - 7776| == 4651 as
// CCV (code('a')=3125=5^5, code('b')=7776=6^5).
func TestGenerateConfusionsDepth1(t *testing.T) {
	chars := []CharCode{{Sym: "a", Code: 3125}, {Sym: "b", Code: 7776}}
	confusions := GenerateConfusions(chars, 1, ModeAll, nil)
	var found bool
	for _, c := range confusions {
		if (c.Left == "a" && c.Right == "b") || (c.Left == "b" && c.Right == "a") {
			assert.EqualValues(t, 4651, c.CCV)
			found = true
		}
	}
	assert.True(t, found, "expected an a~b or b~a substitution pair")
}

func TestGenerateConfusionsDeletion(t *testing.T) {
	chars := []CharCode{{Sym: "a", Code: 3125}, {Sym: "b", Code: 7776}}
	confusions := GenerateConfusions(chars, 1, ModeAll, nil)
	var sawDeletion bool
	for _, c := range confusions {
		if c.Right == "" && c.Left == "a" {
			assert.EqualValues(t, 3125, c.CCV)
			sawDeletion = true
		}
	}
	assert.True(t, sawDeletion, "expected a 1-0 deletion entry for 'a'")
}

func TestGenerateConfusionsModeFirstKeepsOnePerCCV(t *testing.T) {
	chars := []CharCode{
		{Sym: "a", Code: 10}, {Sym: "b", Code: 20}, {Sym: "c", Code: 30},
	}
	all := GenerateConfusions(chars, 3, ModeAll, nil)
	first := GenerateConfusions(chars, 3, ModeFirst, nil)
	byCCV := make(map[uint64]int)
	for _, c := range all {
		byCCV[c.CCV]++
	}
	for _, c := range first {
		assert.GreaterOrEqual(t, byCCV[c.CCV], 1)
	}
	// ModeFirst never emits two rows for the same CCV.
	seen := make(map[uint64]bool)
	for _, c := range first {
		assert.False(t, seen[c.CCV], "duplicate CCV %d in ModeFirst output", c.CCV)
		seen[c.CCV] = true
	}
}

// Every emitted confusion's CCV equals the absolute difference of the
// summed character codes of its two sides.
func TestConfusionValuesMatchHashDifference(t *testing.T) {
	chars := []CharCode{
		{Sym: "a", Code: 3125}, {Sym: "b", Code: 7776}, {Sym: "c", Code: 16807},
	}
	codes := map[rune]uint64{'a': 3125, 'b': 7776, 'c': 16807}
	sum := func(s string) uint64 {
		var v uint64
		for _, r := range s {
			v += codes[r]
		}
		return v
	}
	for _, c := range GenerateConfusions(chars, 3, ModeAll, nil) {
		l, r := sum(c.Left), sum(c.Right)
		want := l - r
		if r > l {
			want = r - l
		}
		assert.Equal(t, want, c.CCV, "%s~%s", c.Left, c.Right)
	}
}

func TestWriteAlphabetFile(t *testing.T) {
	entries := []CharCode{
		{Sym: "*", Code: 100 * 100 * 100 * 100 * 100},
		{Sym: "a", Freq: 5, Code: 3125},
	}
	var sb strings.Builder
	require.NoError(t, WriteAlphabetFile(&sb, entries, "corpus.tsv"))
	out := sb.String()
	assert.Contains(t, out, "## Alphabetsize: 2")
	assert.Contains(t, out, "a\t5\t3125")
}

func TestWriteConfusionFileModeFirst(t *testing.T) {
	confusions := []Confusion{{CCV: 10, Left: "a", Right: "b"}, {CCV: 20, Left: "c", Right: ""}}
	var sb strings.Builder
	require.NoError(t, WriteConfusionFile(&sb, confusions, ModeFirst))
	assert.Equal(t, "10#a~b\n20#c~\n", sb.String())
}

func TestWriteConfusionFileModeAllGroups(t *testing.T) {
	confusions := []Confusion{
		{CCV: 10, Left: "a", Right: "b"},
		{CCV: 10, Left: "c", Right: "d"},
		{CCV: 20, Left: "e", Right: "f"},
	}
	var sb strings.Builder
	require.NoError(t, WriteConfusionFile(&sb, confusions, ModeAll))
	assert.Equal(t, "10#a~b#c~d\n20#e~f\n", sb.String())
}

func TestWriteDiacriticFile(t *testing.T) {
	entries := []CharCode{
		{Sym: "a", Code: 100},
		{Sym: "á", Code: 150}, // 'á'
	}
	var sb strings.Builder
	require.NoError(t, WriteDiacriticFile(&sb, entries))
	assert.Equal(t, "50#á~a\n", sb.String())
}
