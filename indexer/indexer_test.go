package indexer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LanguageMachines/ticcltools/internal/ticclrun"
)

func TestReadAnaHashHashes(t *testing.T) {
	in := "100~ab#ba\n200~abcde\n"
	hashes, err := ReadAnaHashHashes(strings.NewReader(in), 3, 5)
	require.NoError(t, err)
	assert.Equal(t, []uint64{200}, hashes, "2-letter bucket filtered out by the length band")
}

func TestReadConfusionHashes(t *testing.T) {
	hashes, err := ReadConfusionHashes(strings.NewReader("10#a~b\n20#c~d\n10#x~y\n"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 20}, hashes)
}

func TestReadFociHashes(t *testing.T) {
	hashes, err := ReadFociHashes(strings.NewReader("42~word1#word2\n99\n"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{42, 99}, hashes)
}

// Corpus {"cab":10, "cad":10, "dab":10}: with a toy alphabet where
// code('a')=3125, code('b')=7776, code('c')=16807, code('d')=32768,
// hash("cab")=27708 and hash("cad")=52700, a difference of 24992 (which
// is |code(b)-code(d)|). The indexer, given that CCV, must pair
// hash("cab") with hash("cad").
func TestRunConfusionDrivenPairsKnownDifference(t *testing.T) {
	hashSet := []uint64{27708, 52700}
	confSet := []uint64{24992}
	idx, err := RunConfusionDriven(context.Background(), hashSet, confSet, nil, ticclrun.New(2))
	require.NoError(t, err)
	require.Contains(t, idx, uint64(24992))
	assert.Equal(t, []uint64{27708}, idx[24992])
}

// Regression test for the clamp-to-zero fix in RunConfusionDriven: with
// hashSet={5,55,200} and confusion=50, hash(5)-confusion underflows to a
// huge value unless clamped, which previously made the merge skip past the
// legitimate 5/55 pair. 200-50=150 has no match in hashSet, so CCV 50 must
// pair exactly {5}.
func TestRunConfusionDrivenClampsUnderflow(t *testing.T) {
	hashSet := []uint64{5, 55, 200}
	confSet := []uint64{50}
	idx, err := RunConfusionDriven(context.Background(), hashSet, confSet, nil, ticclrun.New(2))
	require.NoError(t, err)
	assert.Equal(t, []uint64{5}, idx[50])
}

func TestRunConfusionDrivenRespectsFoci(t *testing.T) {
	hashSet := []uint64{27708, 52700}
	confSet := []uint64{24992}
	foci := map[uint64]struct{}{99999: {}} // neither hash is a focus
	idx, err := RunConfusionDriven(context.Background(), hashSet, confSet, foci, ticclrun.New(2))
	require.NoError(t, err)
	assert.Empty(t, idx)
}

func TestRunWordDrivenMatchesConfusionDriven(t *testing.T) {
	hashSet := []uint64{27708, 52700}
	confSet := []uint64{24992}
	foci := []uint64{27708}
	idx, err := RunWordDriven(context.Background(), hashSet, confSet, foci, ticclrun.New(2))
	require.NoError(t, err)
	assert.Equal(t, []uint64{27708}, idx[24992])
}

func TestWriteIndexFile(t *testing.T) {
	idx := Index{10: {1, 2}, 5: {3}}
	var sb strings.Builder
	require.NoError(t, WriteIndexFile(&sb, idx))
	assert.Equal(t, "5#3\n10#1,2\n", sb.String())
}

// Every (ccv, h) pair in the index names two hashes that really occur in
// the input set.
func TestRunConfusionDrivenSoundness(t *testing.T) {
	hashSet := []uint64{100, 150, 250, 400, 405}
	confSet := []uint64{5, 50, 150}
	idx, err := RunConfusionDriven(context.Background(), hashSet, confSet, nil, ticclrun.New(3))
	require.NoError(t, err)
	require.NotEmpty(t, idx)
	inSet := make(map[uint64]struct{}, len(hashSet))
	for _, h := range hashSet {
		inSet[h] = struct{}{}
	}
	for ccv, hs := range idx {
		for _, h := range hs {
			_, okLow := inSet[h]
			_, okHigh := inSet[h+ccv]
			assert.True(t, okLow, "ccv %d: %d not in hash set", ccv, h)
			assert.True(t, okHigh, "ccv %d: %d not in hash set", ccv, h+ccv)
		}
	}
}

func TestReadIndexFileRoundTrip(t *testing.T) {
	idx := Index{10: {1, 2}, 5: {3}}
	var sb strings.Builder
	require.NoError(t, WriteIndexFile(&sb, idx))
	got, err := ReadIndexFile(strings.NewReader(sb.String()), nil)
	require.NoError(t, err)
	assert.Equal(t, idx, got)
}

func TestReadIndexFileToleratesSomeMalformedLines(t *testing.T) {
	in := strings.Repeat("garbage\n", 9) + "5#3\n"
	idx, err := ReadIndexFile(strings.NewReader(in), nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3}, idx[5])

	_, err = ReadIndexFile(strings.NewReader(strings.Repeat("garbage\n", 10)), nil)
	require.Error(t, err)
}

func TestWriteConfStatsFile(t *testing.T) {
	idx := Index{10: {1, 2}, 5: {3}}
	var sb strings.Builder
	require.NoError(t, WriteConfStatsFile(&sb, idx))
	assert.Equal(t, "5#1\n10#2\n", sb.String())
}
