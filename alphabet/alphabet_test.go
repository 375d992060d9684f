package alphabet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// toyAlphabet builds a small five-letter alphabet for worked-example tests:
// code('a')=3125, code('b')=7776, code('c')=16807, code('d')=32768,
// code('e')=59049 (i.e. 5^5, 6^5, 7^5, 8^5, 9^5).
func toyAlphabet() *Alphabet {
	a := New()
	a.Codes['a'] = 3125
	a.Codes['b'] = 7776
	a.Codes['c'] = 16807
	a.Codes['d'] = 32768
	a.Codes['e'] = 59049
	return a
}

func TestHighFive(t *testing.T) {
	assert.EqualValues(t, 3125, HighFive(5))
	assert.EqualValues(t, 100*100*100*100*100, H100)
	assert.EqualValues(t, 101*101*101*101*101, H101)
}

func TestFillAlphabet(t *testing.T) {
	in := "# header\na\t10\t3125\nb\t0\t7776\nc\t1\t16807\n"
	a, err := FillAlphabet(strings.NewReader(in), 1)
	require.NoError(t, err)
	assert.EqualValues(t, 3125, a.Codes['a'])
	assert.True(t, a.HasSep)
	assert.Equal(t, 'b', a.Separator)
	_, hasC := a.Codes['c']
	assert.False(t, hasC, "freq 1 <= clip 1 must be dropped")
}

func TestFillAlphabetMalformed(t *testing.T) {
	_, err := FillAlphabet(strings.NewReader("a\t10\n"), 0)
	require.Error(t, err)
}

// hash("cab") == code(c)+code(a)+code(b) == 27708, and "bca" lands in the
// same bucket: the hash is anagram-invariant.
func TestHashAnagramInvariance(t *testing.T) {
	a := toyAlphabet()
	h1 := Hash("cab", a)
	h2 := Hash("bca", a)
	assert.EqualValues(t, 27708, h1)
	assert.Equal(t, h1, h2)
}

// The hash is additive: hash(a+b) == hash(a)+hash(b).
func TestHashAdditive(t *testing.T) {
	a := toyAlphabet()
	assert.Equal(t, Hash("ab", a)+Hash("cd", a), Hash("abcd", a))
}

// A run of consecutive punctuation contributes H100 exactly once.
func TestHashPunctuationCollapse(t *testing.T) {
	a := toyAlphabet()
	assert.Equal(t, Hash("a..b", a), Hash("a.b", a))
}

func TestHashUnknownRune(t *testing.T) {
	a := toyAlphabet()
	assert.Equal(t, Hash("a", a)+H101, Hash("az", a))
}

// LD is symmetric and zero only for identical strings.
func TestLDSymmetryAndIdentity(t *testing.T) {
	assert.Equal(t, LD("kitten", "sitting"), LD("sitting", "kitten"))
	assert.Equal(t, 0, LD("same", "same"))
	assert.Equal(t, 3, LD("kitten", "sitting"))
	assert.Equal(t, 3, LD("", "abc"))
}
