package rank

import (
	"strings"
	"testing"

	"github.com/LanguageMachines/ticcltools/alphabet"
	"github.com/LanguageMachines/ticcltools/ldcalc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(variant, candidate string, freq2, ld, cls uint64) *ldcalc.Record {
	r, err := ldcalc.ParseRecord(
		variant + "~100~100~" + candidate + "~" +
			itoa(freq2) + "~" + itoa(freq2) + "~1~" + itoa(ld) + "~" + itoa(cls) + "~1~1~1~0~0")
	if err != nil {
		panic(err)
	}
	return r
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	digits := ""
	for v > 0 {
		digits = string(rune('0'+v%10)) + digits
		v /= 10
	}
	return digits
}

func TestRankSingleCandidateGetsFullRank(t *testing.T) {
	records := []*ldcalc.Record{rec("huus", "huis", 500, 1, 3)}
	stats := ComputeGlobalStats(records)
	result := Rank(records, stats, Config{Clip: 10})
	require.Contains(t, result, "huus")
	require.Len(t, result["huus"], 1)
	assert.Equal(t, 1.0, result["huus"][0].Rank)
}

func TestRankOrdersByCompositeDescending(t *testing.T) {
	records := []*ldcalc.Record{
		rec("huus", "huis", 500, 1, 3),
		rec("huus", "hups", 10, 2, 2),
	}
	stats := ComputeGlobalStats(records)
	result := Rank(records, stats, Config{Clip: 10})
	group := result["huus"]
	require.Len(t, group, 2)
	assert.GreaterOrEqual(t, group[0].Rank, group[1].Rank)
	assert.Equal(t, "huis", group[0].Candidate)
}

func TestRankClipLimitsOutput(t *testing.T) {
	records := []*ldcalc.Record{
		rec("huus", "huis", 500, 1, 3),
		rec("huus", "hups", 10, 2, 2),
		rec("huus", "huts", 5, 3, 1),
	}
	stats := ComputeGlobalStats(records)
	result := Rank(records, stats, Config{Clip: 1})
	assert.Len(t, result["huus"], 1)
}

// Identical inputs produce identical output, record for record.
func TestRankDeterministic(t *testing.T) {
	records := []*ldcalc.Record{
		rec("huus", "huis", 500, 1, 3),
		rec("huus", "hups", 10, 2, 2),
		rec("kat", "rat", 20, 1, 2),
	}
	stats := ComputeGlobalStats(records)
	flatten := func(byVariant map[string][]*RankRecord) string {
		var sb strings.Builder
		for _, v := range []string{"huus", "kat"} {
			for _, r := range byVariant[v] {
				sb.WriteString(r.Marshal())
				sb.WriteByte('\n')
			}
		}
		return sb.String()
	}
	first := flatten(Rank(records, stats, Config{Clip: 2}))
	second := flatten(Rank(records, stats, Config{Clip: 2}))
	assert.Equal(t, first, second)
}

func TestChainOrderSortsByCandidateFrequency(t *testing.T) {
	records := []*ldcalc.Record{
		rec("huus", "huis", 500, 1, 3),
		rec("kat", "rat", 20, 1, 2),
		rec("hond", "bond", 900, 1, 3),
	}
	stats := ComputeGlobalStats(records)
	byVariant := Rank(records, stats, Config{Clip: 1})
	flat := ChainOrder(byVariant)
	require.Len(t, flat, 3)
	assert.Equal(t, "bond", flat[0].Candidate)
	assert.Equal(t, "huis", flat[1].Candidate)
	assert.Equal(t, "rat", flat[2].Candidate)
}

func TestComputePairs2(t *testing.T) {
	a := alphabet.New()
	for i, r := range []rune("abcd") {
		a.Codes[r] = alphabet.HighFive(i + 1)
	}
	stats := &GlobalStats{Counts: map[uint64]uint64{
		diffOf(a, 'a', 'c'): 5,
		diffOf(a, 'a', 'd'): 1,
		diffOf(a, 'b', 'c'): 1,
		diffOf(a, 'b', 'd'): 1,
		42:                  3,
	}}
	r := strings.NewReader("42#ab~cd\n")
	err := ComputePairs2(r, a, stats)
	require.NoError(t, err)
	assert.Equal(t, uint64(5+1), stats.Pairs2[42])
}

func diffOf(a *alphabet.Alphabet, x, y rune) uint64 {
	return diff(a.Codes[x], a.Codes[y])
}

func TestDescRankerTiesShareRank(t *testing.T) {
	vals := []uint64{10, 10, 5}
	ranks := descRanker(3, func(i int) uint64 { return vals[i] })
	assert.Equal(t, []float64{1, 1, 2}, ranks)
}

func TestAscRankerTiesShareRank(t *testing.T) {
	vals := []int{1, 1, 3}
	ranks := ascRanker(3, func(i int) int { return vals[i] })
	assert.Equal(t, []float64{1, 1, 2}, ranks)
}
