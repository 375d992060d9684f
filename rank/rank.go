// Package rank scores every candidate correction of a variant against its
// siblings on fourteen independent features, rank-of-ranks style: each
// feature orders the candidate group and assigns a tied integer rank, and
// the fourteen ranks combine into one composite score per candidate.
package rank

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/LanguageMachines/ticcltools/alphabet"
	"github.com/LanguageMachines/ticcltools/internal/ticclerr"
	"github.com/LanguageMachines/ticcltools/internal/ticclio"
	"github.com/LanguageMachines/ticcltools/ldcalc"
)

// Feature names the fourteen ranking criteria, in their fixed wire-format
// column order. Using a tagged enum here (rather than dispatching through
// a slice of closures) keeps the per-feature switch exhaustive and
// compiler-checked, the concrete alternative to dynamic dispatch.
type Feature int

const (
	FeatF2Len Feature = iota
	FeatFreq
	FeatLD
	FeatCls
	FeatCanon
	FeatFL
	FeatLL
	FeatKHC
	FeatPairs1
	FeatPairs2
	FeatMedian
	FeatVariantCount
	FeatCosine
	FeatNgram
	featureCount
)

// DefaultCosineThreshold is the similarity cutoff below which a candidate's
// word-vector cosine is treated as "not similar" for ranking purposes.
const DefaultCosineThreshold = 0.001

// WordVectors looks up the similarity between two surface forms. A false
// second return means neither form (or the model itself) is available.
type WordVectors interface {
	Cosine(a, b string) (float64, bool)
}

// Config controls Rank's behavior.
type Config struct {
	Clip            int
	ArtiFreqF1      uint64
	ArtiFreqF2      uint64
	Skip            map[Feature]bool
	CosineThreshold float64
	Vectors         WordVectors
}

func (c Config) cosineThreshold() float64 {
	if c.CosineThreshold > 0 {
		return c.CosineThreshold
	}
	return DefaultCosineThreshold
}

func (c Config) factor() int {
	kept := int(featureCount)
	for f := Feature(0); f < featureCount; f++ {
		if c.Skip[f] {
			kept--
		}
	}
	if kept < 1 {
		kept = 1
	}
	return kept
}

// RankRecord is one scored candidate: the raw fields carried over from its
// ldcalc.Record, plus the fourteen per-feature ranks and the final
// composite Rank.
type RankRecord struct {
	Variant               string
	VariantFreq           uint64
	LowVariantFreq         uint64
	Candidate              string
	lowerCandidate         string
	CandidateFreq          uint64
	ReducedCandidateFreq   uint64
	LowCandidateFreq       uint64
	CharConfVal            uint64
	F2Len                  int
	LD                     int
	Cls                    int
	Canon                  int
	FL                     int
	LL                     int
	KHC                    int
	Pairs1                 uint64
	Pairs2                 uint64
	Median                 uint64
	VariantCount           int
	NgramPoints            int
	Cosine                 float64

	ranks [featureCount]float64
	Rank  float64
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// fromLD builds the part of a RankRecord that does not depend on global
// statistics (everything but pairs1/pairs2/median/variant_count), including
// the fixed canon/fl/ll/khc/cosine ranks.
func fromLD(rec *ldcalc.Record, cfg Config) *RankRecord {
	candidateFreq := rec.Freq2
	reduced := candidateFreq
	if cfg.ArtiFreqF1 > 0 && reduced >= cfg.ArtiFreqF1 {
		reduced -= cfg.ArtiFreqF1
	}
	f2 := candidateFreq
	if cfg.ArtiFreqF2 > 0 && candidateFreq >= cfg.ArtiFreqF2 {
		f2 -= cfg.ArtiFreqF2
	}
	r := &RankRecord{
		Variant:              rec.Str1,
		VariantFreq:          rec.Freq1,
		LowVariantFreq:       rec.LowFreq1,
		Candidate:            rec.Str2,
		lowerCandidate:       strings.ToLower(rec.Str2),
		CandidateFreq:        candidateFreq,
		ReducedCandidateFreq: reduced,
		LowCandidateFreq:     rec.LowFreq2,
		CharConfVal:          rec.KWC,
		F2Len:                len(strconv.FormatUint(f2, 10)),
		LD:                   rec.LD,
		Cls:                  rec.Cls,
		Canon:                b2i(rec.Canon),
		FL:                   b2i(rec.FLoverlap),
		LL:                   b2i(rec.LLoverlap),
		KHC:                  b2i(rec.IsKHC),
		NgramPoints:          rec.NgramPoint,
	}
	r.ranks[FeatCanon] = fixedRank(r.Canon == 0, 10, 1)
	r.ranks[FeatFL] = fixedRank(r.FL == 0, 2, 1)
	r.ranks[FeatLL] = fixedRank(r.LL == 0, 2, 1)
	r.ranks[FeatKHC] = fixedRank(r.KHC == 0, 2, 1)
	if cfg.Vectors != nil {
		if c, ok := cfg.Vectors.Cosine(r.Variant, r.Candidate); ok {
			r.Cosine = c
		}
	}
	r.ranks[FeatCosine] = fixedRank(r.Cosine <= cfg.cosineThreshold(), 10, 1)
	return r
}

func fixedRank(cond bool, ifTrue, ifFalse float64) float64 {
	if cond {
		return ifTrue
	}
	return ifFalse
}

// GlobalStats holds the corpus-wide tallies every candidate group's
// pairs1/pairs2/median features are looked up from: they are computed once
// over the whole input, not per variant group.
type GlobalStats struct {
	Counts  map[uint64]uint64 // char_conf_val -> record count
	Medians map[uint64]uint64 // char_conf_val -> median candidate_freq
	Pairs2  map[uint64]uint64 // char_conf_val -> diagonal-pair count
}

// ComputeGlobalStats scans every ldcalc.Record once to build Counts and
// Medians.
func ComputeGlobalStats(records []*ldcalc.Record) *GlobalStats {
	counts := make(map[uint64]uint64)
	freqs := make(map[uint64][]uint64)
	for _, r := range records {
		counts[r.KWC]++
		freqs[r.KWC] = append(freqs[r.KWC], r.Freq2)
	}
	medians := make(map[uint64]uint64, len(freqs))
	for ccv, fs := range freqs {
		sort.Slice(fs, func(i, j int) bool { return fs[i] < fs[j] })
		n := len(fs)
		if n%2 == 0 {
			medians[ccv] = (fs[n/2-1] + fs[n/2]) / 2
		} else {
			medians[ccv] = fs[n/2]
		}
	}
	return &GlobalStats{Counts: counts, Medians: medians}
}

// ComputePairs2 reads a ".charconfus" file and, for every CCV whose first
// confusion value is a two-character "xy~zw" pair with every character in
// alpha, looks up the counts of the four single-character cross-diffs
// (x-z, x-w, y-z, y-w) in stats.Counts and assigns the winner plus its
// diagonal partner as that CCV's pairs2 value. The max search scans only
// the first three of the four counts; the fourth only ever contributes
// its value to the winning pair's total.
func ComputePairs2(r io.Reader, alpha *alphabet.Alphabet, stats *GlobalStats) error {
	stats.Pairs2 = make(map[uint64]uint64)
	sc := ticclio.ScanLines(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "#")
		if len(fields) < 2 {
			return ticclerr.NewFormat("charconfus", lineNo, line, fmt.Errorf("missing '#' separator"))
		}
		ccv, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return ticclerr.NewFormat("charconfus", lineNo, line, err)
		}
		if stats.Counts[ccv] == 0 {
			continue
		}
		value := []rune(fields[1])
		if len(value) != 5 || value[2] != '~' {
			continue
		}
		b1, ok1 := alpha.Codes[value[0]]
		b2, ok2 := alpha.Codes[value[1]]
		b3, ok3 := alpha.Codes[value[3]]
		b4, ok4 := alpha.Codes[value[4]]
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}
		counts := [4]uint64{
			stats.Counts[diff(b1, b3)],
			stats.Counts[diff(b1, b4)],
			stats.Counts[diff(b2, b3)],
			stats.Counts[diff(b2, b4)],
		}
		var max uint64
		maxPos := 0
		for i := 0; i < 3; i++ {
			if counts[i] > max {
				max = counts[i]
				maxPos = i
			}
		}
		if max == 0 {
			continue
		}
		switch maxPos {
		case 0:
			stats.Pairs2[ccv] = max + counts[3]
		case 1:
			stats.Pairs2[ccv] = max + counts[2]
		case 2:
			stats.Pairs2[ccv] = max + counts[1]
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%w: reading charconfus: %v", ticclerr.ErrIO, err)
	}
	return nil
}

func diff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

// descRanker assigns tied integer ranks, largest value first (rank 1 is
// "best"). Ties share the same rank; the ranking only increments when the
// value changes.
func descRanker(n int, value func(i int) uint64) []float64 {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return value(idx[i]) > value(idx[j]) })
	ranks := make([]float64, n)
	if n == 0 {
		return ranks
	}
	ranking := 1
	last := value(idx[0])
	for _, i := range idx {
		v := value(i)
		if v < last {
			last = v
			ranking++
		}
		ranks[i] = float64(ranking)
	}
	return ranks
}

// ascRanker is descRanker's mirror for the one feature (LD) where smaller
// is better.
func ascRanker(n int, value func(i int) int) []float64 {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return value(idx[i]) < value(idx[j]) })
	ranks := make([]float64, n)
	if n == 0 {
		return ranks
	}
	ranking := 1
	last := value(idx[0])
	for _, i := range idx {
		v := value(i)
		if v > last {
			last = v
			ranking++
		}
		ranks[i] = float64(ranking)
	}
	return ranks
}

// rankGroup scores the candidates of a single variant against one another:
// every feature except the four fixed-value ones (canon/fl/ll/khc, set at
// construction time) and cosine is ranked relative to its siblings here.
func rankGroup(group []*RankRecord, stats *GlobalStats, cfg Config) {
	n := len(group)
	f2len := descRanker(n, func(i int) uint64 { return uint64(group[i].F2Len) })
	freq := descRanker(n, func(i int) uint64 { return group[i].ReducedCandidateFreq })
	ld := ascRanker(n, func(i int) int { return group[i].LD })
	cls := descRanker(n, func(i int) uint64 { return uint64(group[i].Cls) })

	lowerCounts := make(map[string]int, n)
	for _, r := range group {
		lowerCounts[r.lowerCandidate]++
	}
	variantCount := descRanker(n, func(i int) uint64 { return uint64(lowerCounts[group[i].lowerCandidate]) })
	ngram := descRanker(n, func(i int) uint64 { return uint64(group[i].NgramPoints) })

	pairs1Vals := make([]uint64, n)
	pairs2Vals := make([]uint64, n)
	medianVals := make([]uint64, n)
	for i, r := range group {
		r.Pairs1 = stats.Counts[r.CharConfVal]
		r.Pairs2 = stats.Pairs2[r.CharConfVal]
		r.Median = stats.Medians[r.CharConfVal]
		pairs1Vals[i] = r.Pairs1
		pairs2Vals[i] = r.Pairs2
		medianVals[i] = r.Median
	}
	pairs1 := descRanker(n, func(i int) uint64 { return pairs1Vals[i] })
	pairs2 := descRanker(n, func(i int) uint64 { return pairs2Vals[i] })
	median := descRanker(n, func(i int) uint64 { return medianVals[i] })

	for i, r := range group {
		r.ranks[FeatF2Len] = f2len[i]
		r.ranks[FeatFreq] = freq[i]
		r.ranks[FeatLD] = ld[i]
		r.ranks[FeatCls] = cls[i]
		r.ranks[FeatPairs1] = pairs1[i]
		r.ranks[FeatPairs2] = pairs2[i]
		r.ranks[FeatMedian] = median[i]
		r.VariantCount = lowerCounts[r.lowerCandidate]
		r.ranks[FeatVariantCount] = variantCount[i]
		r.ranks[FeatNgram] = ngram[i]
	}

	factor := float64(cfg.factor())
	sum := 0.0
	for _, r := range group {
		var v float64
		for f := Feature(0); f < featureCount; f++ {
			if cfg.Skip[f] {
				continue
			}
			v += r.ranks[f]
		}
		v /= factor
		r.Rank = v
		sum += v
	}
	if n == 1 {
		group[0].Rank = 1.0
		return
	}
	for _, r := range group {
		r.Rank = 1 - r.Rank/sum
	}
}

// Rank groups records by variant, scores each group's candidates against
// one another, and returns at most cfg.Clip candidates per variant,
// ordered by descending Rank (cfg.Clip == 0 keeps all). The result is a
// map keyed by variant and carries no variant order; callers sort the
// keys when they need one.
func Rank(records []*ldcalc.Record, stats *GlobalStats, cfg Config) map[string][]*RankRecord {
	if cfg.Skip == nil {
		cfg.Skip = map[Feature]bool{}
	}
	groups := make(map[string][]*RankRecord)
	var order []string
	for _, rec := range records {
		rr := fromLD(rec, cfg)
		if _, ok := groups[rr.Variant]; !ok {
			order = append(order, rr.Variant)
		}
		groups[rr.Variant] = append(groups[rr.Variant], rr)
	}
	sort.Strings(order)

	result := make(map[string][]*RankRecord, len(groups))
	clip := cfg.Clip
	for _, variant := range order {
		group := groups[variant]
		rankGroup(group, stats, cfg)
		sort.SliceStable(group, func(i, j int) bool { return group[i].Rank > group[j].Rank })
		if clip > 0 && len(group) > clip {
			group = group[:clip]
		}
		result[variant] = group
	}
	return result
}

// Marshal writes the short, machine-parseable "#"-separated summary line:
// "variant#varfreq#candidate#candfreq#ccv#ld#rank".
func (r *RankRecord) Marshal() string {
	return fmt.Sprintf("%s#%d#%s#%d#%d#%d#%g",
		r.Variant, r.VariantFreq, r.Candidate, r.CandidateFreq, r.CharConfVal, r.LD, r.Rank)
}

// ChainOrder flattens the per-variant results into the order the chain
// stage wants when every variant kept a single candidate (clip == 1):
// candidate frequency descending, ties broken by composite rank
// descending, then by variant for reproducibility.
func ChainOrder(byVariant map[string][]*RankRecord) []*RankRecord {
	var out []*RankRecord
	for _, group := range byVariant {
		out = append(out, group...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CandidateFreq != out[j].CandidateFreq {
			return out[i].CandidateFreq > out[j].CandidateFreq
		}
		if out[i].Rank != out[j].Rank {
			return out[i].Rank > out[j].Rank
		}
		return out[i].Variant < out[j].Variant
	})
	return out
}

// WriteChainInput writes the clip == 1 variant of the ".ranked" file: one
// line per record in ChainOrder.
func WriteChainInput(w io.Writer, recs []*RankRecord) error {
	bw := ticclio.BufferedWriter(w)
	for _, r := range recs {
		fmt.Fprintln(bw, r.Marshal())
	}
	return bw.Flush()
}

// WriteRanked writes the ".ranked" file: for each variant (in the order
// given by variants, typically Rank's keys sorted alphabetically) one line per
// surviving candidate, best rank first.
func WriteRanked(w io.Writer, variants []string, byVariant map[string][]*RankRecord) error {
	bw := ticclio.BufferedWriter(w)
	for _, v := range variants {
		for _, r := range byVariant[v] {
			fmt.Fprintln(bw, r.Marshal())
		}
	}
	return bw.Flush()
}
