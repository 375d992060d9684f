package anahash

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LanguageMachines/ticcltools/alphabet"
)

func toyAlphabet() *alphabet.Alphabet {
	a := alphabet.New()
	a.Codes['a'] = 3125
	a.Codes['b'] = 7776
	a.Codes['c'] = 16807
	a.Codes['d'] = 32768
	return a
}

func TestFilterTildeHash(t *testing.T) {
	assert.Equal(t, "a_b_c", FilterTildeHash("a~b#c"))
	assert.Equal(t, "abc", FilterTildeHash("abc"))
}

func TestHashCorpus(t *testing.T) {
	a := toyAlphabet()
	c, err := HashCorpus(strings.NewReader("cab\t10\ncad\t10\ndab\t10\n"), a, 0, 0)
	require.NoError(t, err)
	hCab := alphabet.Hash("cab", a)
	hCad := alphabet.Hash("cad", a)
	assert.Contains(t, c.Buckets[hCab], "cab")
	assert.Contains(t, c.Buckets[hCad], "cad")
	assert.EqualValues(t, 10, c.Freq["cab"])
}

func TestHashCorpusDefaultFrequency(t *testing.T) {
	a := toyAlphabet()
	c, err := HashCorpus(strings.NewReader("cab\n"), a, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, c.Freq["cab"])
}

func TestHashCorpusLengthBand(t *testing.T) {
	a := toyAlphabet()
	c, err := HashCorpus(strings.NewReader("ab\t1\ncab\t1\nabcd\t1\n"), a, 3, 3)
	require.NoError(t, err)
	_, hasShort := c.Freq["ab"]
	_, hasLong := c.Freq["abcd"]
	assert.False(t, hasShort)
	assert.False(t, hasLong)
	assert.Contains(t, c.Freq, "cab")
}

func TestHashCorpusMalformed(t *testing.T) {
	a := toyAlphabet()
	_, err := HashCorpus(strings.NewReader("cab\t10\textra\n"), a, 0, 0)
	require.Error(t, err)
}

func TestWriteList(t *testing.T) {
	a := toyAlphabet()
	var sb strings.Builder
	require.NoError(t, WriteList(&sb, strings.NewReader("cab\t10\n"), a))
	h := alphabet.Hash("cab", a)
	assert.Equal(t, fmt.Sprintf("cab\t%d\n", h), sb.String())
}

func TestComputeFociNonNgram(t *testing.T) {
	a := toyAlphabet()
	freq := map[string]uint64{"Cab": 1, "cab": 2, "dab": 100}
	foci := ComputeFoci(freq, a, 5, '_', false)
	h := alphabet.Hash("Cab", a)
	assert.Contains(t, foci[h], "cab")
	hDab := alphabet.Hash("dab", a)
	assert.NotContains(t, foci, hDab, "frequency at or above artifreq is not a focus")
}

func TestComputeFociRejectsKnownLowercaseForm(t *testing.T) {
	a := toyAlphabet()
	// "Cab" itself is rare, but its lower-cased form is a known word.
	freq := map[string]uint64{"Cab": 1, "cab": 100}
	foci := ComputeFoci(freq, a, 5, '_', false)
	assert.Empty(t, foci)
}

func TestComputeFociNgram(t *testing.T) {
	a := toyAlphabet()
	freq := map[string]uint64{
		"cab_dab": 1,
		"cab":     1,
		"dab":     100,
	}
	foci := ComputeFoci(freq, a, 5, '_', true)
	h := alphabet.Hash("cab_dab", a)
	assert.Contains(t, foci[h], "cab_dab")
}

func TestMergeBackground(t *testing.T) {
	a := toyAlphabet()
	buckets := make(Buckets)
	merged := map[string]uint64{"cab": 10}
	err := MergeBackground(strings.NewReader("cab\t5\ncad\t3\n"), a, buckets, merged)
	require.NoError(t, err)
	assert.EqualValues(t, 15, merged["cab"])
	assert.EqualValues(t, 3, merged["cad"])
	h := alphabet.Hash("cad", a)
	assert.Contains(t, buckets[h], "cad")
}

func TestWriteAnagramFile(t *testing.T) {
	b := Buckets{
		10: {"b": {}, "a": {}},
	}
	var sb strings.Builder
	require.NoError(t, WriteAnagramFile(&sb, b))
	assert.Equal(t, "10~a#b\n", sb.String())
}

func TestWriteMergedFile(t *testing.T) {
	merged := map[string]uint64{"b": 2, "a": 1}
	var sb strings.Builder
	require.NoError(t, WriteMergedFile(&sb, merged))
	assert.Equal(t, "a\t1\nb\t2\n", sb.String())
}
