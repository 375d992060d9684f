package ldcalc

import (
	"context"
	"strings"
	"testing"

	"github.com/LanguageMachines/ticcltools/alphabet"
	"github.com/LanguageMachines/ticcltools/indexer"
	"github.com/LanguageMachines/ticcltools/internal/ticclrun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAlphabet() *alphabet.Alphabet {
	a := alphabet.New()
	for i, r := range []rune("abcdefghijklmnopqrstuvwxyz") {
		a.Codes[r] = alphabet.HighFive(i + 1)
	}
	return a
}

func TestBuildFreqTables(t *testing.T) {
	r := strings.NewReader("house 10\nhouses 3\nHouse 1\n")
	tables, err := BuildFreqTables(r, 5, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), tables.Freq["house"])
	assert.Equal(t, uint64(3), tables.Freq["houses"])
	// "house" (freq 10 >= artifreq 5) seeds lowfreq["house"]=10;
	// "House" (freq 1 < artifreq) adds its own freq.
	assert.Equal(t, uint64(11), tables.LowFreq["house"])
	assert.Equal(t, uint64(3), tables.LowFreq["houses"])
}

func TestBuildFreqTablesLengthFilter(t *testing.T) {
	r := strings.NewReader("a 5\nbb 5\nccc 5\n")
	tables, err := BuildFreqTables(r, 100, 2, 2)
	require.NoError(t, err)
	_, hasA := tables.Freq["a"]
	_, hasBB := tables.Freq["bb"]
	_, hasCCC := tables.Freq["ccc"]
	assert.False(t, hasA)
	assert.True(t, hasBB)
	assert.False(t, hasCCC)
}

func TestFillHashMap(t *testing.T) {
	anahash := strings.NewReader("42~house#shoue\n99~other\n")
	freqMap := map[string]uint64{"house": 1, "shoue": 1}
	m, err := FillHashMap(anahash, freqMap)
	require.NoError(t, err)
	require.Contains(t, m, uint64(42))
	assert.Len(t, m[42], 2)
	assert.NotContains(t, m, uint64(99))
}

func TestRecordSortHighSecond(t *testing.T) {
	freqMap := map[string]uint64{"a": 1, "b": 1}
	lowFreqMap := map[string]uint64{"a": 5, "b": 10}
	r := newRecord("a", "b", 1, 2, freqMap, lowFreqMap, false, false, false)
	r.sortHighSecond()
	// "b" has the higher low frequency and is already second: no flip.
	assert.Equal(t, "a", r.Str1)
	assert.Equal(t, "b", r.Str2)
}

func TestRecordMarshalParseRoundTrip(t *testing.T) {
	freqMap := map[string]uint64{"huis": 100, "huus": 2}
	lowFreqMap := map[string]uint64{"huis": 100, "huus": 2}
	r := newRecord("huus", "huis", 1, 2, freqMap, lowFreqMap, false, false, false)
	r.sortHighSecond()
	r.ldCheck(2)
	r.fillFields(50)
	line := r.Marshal()
	parsed, err := ParseRecord(line)
	require.NoError(t, err)
	assert.Equal(t, r.Str1, parsed.Str1)
	assert.Equal(t, r.Str2, parsed.Str2)
	assert.Equal(t, r.LD, parsed.LD)
	assert.Equal(t, r.Cls, parsed.Cls)
}

func TestLdIsRejectsWrongDistanceUnlessKHC(t *testing.T) {
	freqMap := map[string]uint64{}
	lowFreqMap := map[string]uint64{}
	r := newRecord("abc", "abcdef", 0, 0, freqMap, lowFreqMap, false, false, false)
	assert.False(t, r.ldIs(2))

	r2 := newRecord("abc", "abcdef", 0, 0, freqMap, lowFreqMap, true, true, false)
	assert.True(t, r2.ldIs(2))
}

func TestRunProducesRecords(t *testing.T) {
	a := testAlphabet()
	freqs := &FreqTables{
		Freq:    map[string]uint64{"huis": 500, "huus": 2},
		LowFreq: map[string]uint64{"huis": 500, "huus": 2},
	}
	hHuis := alphabet.Hash("huis", a)
	hHuus := alphabet.Hash("huus", a)
	var diff uint64
	if hHuis > hHuus {
		diff = hHuis - hHuus
	} else {
		diff = hHuus - hHuis
	}

	hashMap := map[uint64]map[string]struct{}{
		hHuus: {"huus": {}},
		hHuis: {"huis": {}},
	}
	// The index stores the lower member of each pair; the higher is
	// implicitly lower+diff.
	lower := hHuis
	if hHuus < hHuis {
		lower = hHuus
	}
	idx := indexer.Index{diff: {lower}}

	cfg := Config{LDValue: 2, ArtiFreq: 100, LowLimit: 0, Alphabet: a}
	pool := ticclrun.New(1)
	res, err := Run(context.Background(), idx, hashMap, freqs, cfg, pool)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Records)
}
