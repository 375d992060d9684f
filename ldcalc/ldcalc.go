// Package ldcalc lifts anagram-hash index pairs into concrete
// variant/candidate string pairs, filters them by frequency, n-gram
// composition and Levenshtein distance, and emits LD-records: the
// fourteen-field rows the ranker consumes.
package ldcalc

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/LanguageMachines/ticcltools/alphabet"
	"github.com/LanguageMachines/ticcltools/indexer"
	"github.com/LanguageMachines/ticcltools/internal/ticclerr"
	"github.com/LanguageMachines/ticcltools/internal/ticclio"
	"github.com/LanguageMachines/ticcltools/internal/ticclrun"
)

// FreqTables holds the two frequency maps every filter in the chain
// consults: the case-sensitive surface frequency and the lower-cased
// accumulation with the artificial-frequency "subtract on second hit"
// rule applied.
type FreqTables struct {
	Freq    map[string]uint64
	LowFreq map[string]uint64
}

// BuildFreqTables reads a ".clean" frequency list ("word<SPACE>freq" per
// line), drops entries whose word is outside the [low,high] rune-length
// band, and accumulates LowFreq with the artifreq discount: a word whose
// surface frequency is at or above artifreq contributes only once at full
// value to its lower-cased bucket, and artifreq less on every subsequent
// hit (so a background-lexicon word merged into the corpus isn't
// double-counted).
func BuildFreqTables(r io.Reader, artifreq uint64, low, high int) (*FreqTables, error) {
	freqMap := make(map[string]uint64)
	lowFreqMap := make(map[string]uint64)
	sc := ticclio.ScanLines(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		word := fields[0]
		n := utf8.RuneCountInString(word)
		if low > 0 && n < low {
			continue
		}
		if high > 0 && n > high {
			continue
		}
		freq, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, ticclerr.NewFormat("clean", lineNo, line, err)
		}
		freqMap[word] = freq
		ls := strings.ToLower(word)
		if freq >= artifreq {
			if lowFreqMap[ls] == 0 {
				lowFreqMap[ls] = freq
			} else {
				lowFreqMap[ls] += freq - artifreq
			}
		} else {
			lowFreqMap[ls] += freq
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading clean file: %v", ticclerr.ErrIO, err)
	}
	return &FreqTables{Freq: freqMap, LowFreq: lowFreqMap}, nil
}

// FillHashMap reads a ".anahash" file and keeps only the words that also
// appear in freqMap (the validated/clean lexicon): the bucket a downstream
// comparison draws candidates from must be lexicon-backed.
func FillHashMap(r io.Reader, freqMap map[string]uint64) (map[uint64]map[string]struct{}, error) {
	result := make(map[uint64]map[string]struct{})
	sc := ticclio.ScanLines(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" {
			continue
		}
		hashPart, rest, ok := strings.Cut(line, "~")
		if !ok {
			continue
		}
		key, err := strconv.ParseUint(hashPart, 10, 64)
		if err != nil {
			return nil, ticclerr.NewFormat("anahash", lineNo, line, err)
		}
		for _, w := range strings.Split(rest, "#") {
			if w == "" {
				continue
			}
			if _, ok := freqMap[w]; !ok {
				continue
			}
			set, ok := result[key]
			if !ok {
				set = make(map[string]struct{})
				result[key] = set
			}
			set[w] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading anahash: %v", ticclerr.ErrIO, err)
	}
	return result, nil
}

// ReadConfusionSet reads a ".diac"/historical-confusion file ("ccv#...")
// and returns the set of CCVs it names.
func ReadConfusionSet(r io.Reader) (map[uint64]struct{}, error) {
	vals, err := indexer.ReadConfusionHashes(r)
	if err != nil {
		return nil, err
	}
	set := make(map[uint64]struct{}, len(vals))
	for _, v := range vals {
		set[v] = struct{}{}
	}
	return set, nil
}

// Config controls the filter-chain thresholds.
type Config struct {
	LDValue  int
	ArtiFreq uint64
	LowLimit int
	HighLow  int // the n-gram "short" cutoff; defaults to LowLimit when 0
	NoHLD    bool
	Alphabet *alphabet.Alphabet
	HistSet  map[uint64]struct{}
	DiacSet  map[uint64]struct{}
}

func (c Config) shortLimit() int {
	if c.HighLow > 0 {
		return c.HighLow
	}
	return c.LowLimit
}

// Record is an immutable, filtered variant/candidate pair carrying the
// fourteen fields the ranker scores.
type Record struct {
	Str1, Str2      string
	ls1, ls2        string
	Freq1, LowFreq1 uint64
	Freq2, LowFreq2 uint64
	KWC             uint64
	LD              int
	Cls             int
	Canon           bool
	FLoverlap       bool
	LLoverlap       bool
	IsKHC           bool
	NgramPoint      int

	key1, key2   uint64
	isDiac       bool
	noKHCld      bool
}

func newRecord(s1, s2 string, key1, key2 uint64, freqMap, lowFreqMap map[string]uint64, isKHC, noKHCld, isDiac bool) *Record {
	ls1 := strings.ToLower(s1)
	ls2 := strings.ToLower(s2)
	return &Record{
		Str1: s1, Str2: s2,
		ls1: ls1, ls2: ls2,
		Freq1:    freqMap[s1],
		LowFreq1: lowFreqMap[ls1],
		Freq2:    freqMap[s2],
		LowFreq2: lowFreqMap[ls2],
		IsKHC:    isKHC,
		noKHCld:  noKHCld,
		isDiac:   isDiac,
		key1:     key1,
		key2:     key2,
	}
}

func (r *Record) flip() {
	r.Str1, r.Str2 = r.Str2, r.Str1
	r.ls1, r.ls2 = r.ls2, r.ls1
	r.Freq1, r.Freq2 = r.Freq2, r.Freq1
	r.LowFreq1, r.LowFreq2 = r.LowFreq2, r.LowFreq1
}

// Key returns the "str1~str2" identity a Record is stored and merged
// under; callers call it only after sortHighSecond has ordered the pair.
func (r *Record) Key() string { return r.Str1 + "~" + r.Str2 }

// sortHighSecond orders the pair so the higher-low-frequency word becomes
// the candidate (str2); ties are broken by the hash used to build the
// pair (key1 vs key2).
func (r *Record) sortHighSecond() {
	if r.LowFreq1 == r.LowFreq2 {
		if r.key1 < r.key2 {
			r.flip()
		}
	} else if r.LowFreq1 > r.LowFreq2 {
		r.flip()
	}
}

// acceptable rejects lexical (already-validated) variants unless the pair
// is flagged diachronic, and rejects candidates containing a character
// outside the alphabet.
func (r *Record) acceptable(threshold uint64, alpha *alphabet.Alphabet) bool {
	if r.LowFreq1 >= threshold && !r.isDiac {
		return false
	}
	if alpha != nil && len(alpha.Codes) > 0 {
		for _, c := range r.ls2 {
			if _, ok := alpha.Codes[c]; !ok {
				return false
			}
		}
	}
	return true
}

// testFrequency rejects a non-lexical (low-frequency) candidate.
func (r *Record) testFrequency(threshold uint64) bool {
	return r.LowFreq2 >= threshold
}

// ldIs requires an exact LD, used by the transposition path (wanted==2);
// a historical confusion with noKHCld set bypasses the check.
func (r *Record) ldIs(wanted int) bool {
	r.LD = alphabet.LD(r.ls1, r.ls2)
	if r.LD != wanted {
		return r.IsKHC && r.noKHCld
	}
	return true
}

// ldCheck requires LD <= ldvalue, used by the set-comparison path; a
// historical confusion with noKHCld set bypasses the check.
func (r *Record) ldCheck(ldvalue int) bool {
	r.LD = alphabet.LD(r.ls1, r.ls2)
	if r.LD <= ldvalue {
		return true
	}
	return r.IsKHC && r.noKHCld
}

// fillFields computes the remaining descriptive fields once a pair has
// survived the filter chain.
func (r *Record) fillFields(freqThreshold uint64) {
	rs1, rs2 := []rune(r.ls1), []rune(r.ls2)
	n1, n2 := len(rs1), len(rs2)
	max := n1
	if n2 > max {
		max = n2
	}
	r.Cls = max - r.LD
	r.LLoverlap = n1 > 1 && n2 > 1 && rs1[n1-1] == rs2[n2-1] && rs1[n1-2] == rs2[n2-2]
	r.FLoverlap = n1 > 0 && n2 > 0 && rs1[0] == rs2[0]
	r.Canon = r.LowFreq2 >= freqThreshold
}

// analyzeNgrams: when both sides split
// into the same number of separator-delimited parts and differ in
// exactly one position, that differing unigram pair is the real
// correction candidate, not the n-gram as a whole. It reports whether
// the original n-gram pair should be discarded in favor of (or because
// of) that analysis.
func (r *Record) analyzeNgrams(lowFreqMap map[string]uint64, freqThreshold uint64, lowLimit int, sep rune, hasSep bool, disMap map[string]map[string]struct{}, disCount map[string]int, ngramCount map[string]int) bool {
	r.NgramPoint = 0
	var parts1, parts2 []string
	if hasSep {
		parts1 = strings.Split(r.Str1, string(sep))
		parts2 = strings.Split(r.Str2, string(sep))
	} else {
		parts1 = []string{r.Str1}
		parts2 = []string{r.Str2}
	}
	if len(parts1) == 1 && len(parts2) == 1 {
		return false
	}
	if len(parts1) != len(parts2) {
		return false
	}
	var diffPart1, diffPart2 string
	for i := range parts1 {
		left := strings.ToLower(parts1[i])
		right := strings.ToLower(parts2[i])
		if left == right {
			continue
		}
		if diffPart1 == "" {
			diffPart1, diffPart2 = parts1[i], parts2[i]
		} else {
			return true // more than one differing part: too dissimilar
		}
	}
	return r.handleThePair(diffPart1, diffPart2, lowFreqMap, freqThreshold, lowLimit, disMap, disCount, ngramCount)
}

func (r *Record) handleThePair(diffPart1, diffPart2 string, lowFreqMap map[string]uint64, freqThreshold uint64, lowLimit int, disMap map[string]map[string]struct{}, disCount map[string]int, ngramCount map[string]int) bool {
	if diffPart1 == "" {
		return false
	}
	lp := strings.ToLower(diffPart1)
	if lf, ok := lowFreqMap[lp]; ok && lf >= freqThreshold {
		return true
	}
	r.NgramPoint = 1
	disambPair := diffPart1 + "~" + diffPart2
	if utf8.RuneCountInString(diffPart1) < lowLimit {
		set, ok := disMap[disambPair]
		if !ok {
			set = make(map[string]struct{})
			disMap[disambPair] = set
		}
		set[r.Str1+"~"+r.Str2] = struct{}{}
		disCount[disambPair]++
	} else {
		ngramCount[disambPair]++
	}
	return true
}

// Marshal writes the fourteen tilde-separated fields of the ".ldcalc"
// format.
func (r *Record) Marshal() string {
	b01 := func(v bool) int {
		if v {
			return 1
		}
		return 0
	}
	return fmt.Sprintf("%s~%d~%d~%s~%d~%d~%d~%d~%d~%d~%d~%d~%d~%d",
		r.Str1, r.Freq1, r.LowFreq1,
		r.Str2, r.Freq2, r.LowFreq2,
		r.KWC, r.LD, r.Cls,
		b01(r.Canon), b01(r.FLoverlap), b01(r.LLoverlap), b01(r.IsKHC), r.NgramPoint)
}

// ParseRecord parses one ".ldcalc" line back into a Record.
func ParseRecord(line string) (*Record, error) {
	parts := strings.Split(line, "~")
	if len(parts) != 14 {
		return nil, fmt.Errorf("expected 14 '~'-separated fields, got %d", len(parts))
	}
	atoi := func(s string) (int, error) { return strconv.Atoi(s) }
	u64 := func(s string) (uint64, error) { return strconv.ParseUint(s, 10, 64) }
	freq1, err := u64(parts[1])
	if err != nil {
		return nil, err
	}
	lowFreq1, err := u64(parts[2])
	if err != nil {
		return nil, err
	}
	freq2, err := u64(parts[4])
	if err != nil {
		return nil, err
	}
	lowFreq2, err := u64(parts[5])
	if err != nil {
		return nil, err
	}
	kwc, err := u64(parts[6])
	if err != nil {
		return nil, err
	}
	ld, err := atoi(parts[7])
	if err != nil {
		return nil, err
	}
	cls, err := atoi(parts[8])
	if err != nil {
		return nil, err
	}
	ngram, err := atoi(parts[13])
	if err != nil {
		return nil, err
	}
	b := func(s string) bool { return s == "1" }
	return &Record{
		Str1: parts[0], Freq1: freq1, LowFreq1: lowFreq1,
		Str2: parts[3], Freq2: freq2, LowFreq2: lowFreq2,
		KWC: kwc, LD: ld, Cls: cls,
		Canon: b(parts[9]), FLoverlap: b(parts[10]), LLoverlap: b(parts[11]),
		IsKHC: b(parts[12]), NgramPoint: ngram,
	}, nil
}

// accumulator is a worker's local view of the four outputs Run produces;
// the merge point combines one per worker under a single mutex.
type accumulator struct {
	records map[string]*Record
	disMap  map[string]map[string]struct{}
	disCnt  map[string]int
	ngram   map[string]int
}

func newAccumulator() *accumulator {
	return &accumulator{
		records: make(map[string]*Record),
		disMap:  make(map[string]map[string]struct{}),
		disCnt:  make(map[string]int),
		ngram:   make(map[string]int),
	}
}

func mergeRecord(dst map[string]*Record, key string, rec *Record) {
	if existing, ok := dst[key]; ok {
		// Duplicates (the same pair reached two different ways) merge
		// deterministically by keeping the maximum ngram_point seen for
		// the key, so the result does not depend on worker arrival order.
		if rec.NgramPoint > existing.NgramPoint {
			dst[key] = rec
		}
		return
	}
	dst[key] = rec
}

func (a *accumulator) mergeInto(dst *accumulator) {
	for k, v := range a.records {
		mergeRecord(dst.records, k, v)
	}
	for k, set := range a.disMap {
		dstSet, ok := dst.disMap[k]
		if !ok {
			dstSet = make(map[string]struct{})
			dst.disMap[k] = dstSet
		}
		for s := range set {
			dstSet[s] = struct{}{}
		}
	}
	for k, v := range a.disCnt {
		dst.disCnt[k] += v
	}
	for k, v := range a.ngram {
		dst.ngram[k] += v
	}
}

func sortedStrings(s map[string]struct{}) []string {
	out := make([]string, 0, len(s))
	for w := range s {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

func (acc *accumulator) handleTranspositions(words map[string]struct{}, key uint64, freqs *FreqTables, cfg Config, isKHC, isDiac bool) {
	ws := sortedStrings(words)
	for i := 0; i < len(ws); i++ {
		for j := i + 1; j < len(ws); j++ {
			rec := newRecord(ws[i], ws[j], key, key, freqs.Freq, freqs.LowFreq, isKHC, cfg.NoHLD, isDiac)
			rec.sortHighSecond()
			if !rec.acceptable(cfg.ArtiFreq, cfg.Alphabet) {
				continue
			}
			if !rec.testFrequency(cfg.ArtiFreq) {
				continue
			}
			if rec.analyzeNgrams(freqs.LowFreq, cfg.ArtiFreq, cfg.shortLimit(), cfg.Alphabet.Separator, cfg.Alphabet.HasSep, acc.disMap, acc.disCnt, acc.ngram) {
				continue
			}
			if !rec.ldIs(2) {
				continue
			}
			rec.fillFields(cfg.ArtiFreq)
			mergeRecord(acc.records, rec.Key(), rec)
		}
	}
}

func (acc *accumulator) compareSets(ldValue int, kwc, key1 uint64, s1, s2 map[string]struct{}, freqs *FreqTables, cfg Config, isKHC, isDiac bool) {
	w1, w2 := sortedStrings(s1), sortedStrings(s2)
	for _, str1 := range w1 {
		for _, str2 := range w2 {
			rec := newRecord(str1, str2, key1, kwc+key1, freqs.Freq, freqs.LowFreq, isKHC, cfg.NoHLD, isDiac)
			if !rec.ldCheck(ldValue) {
				continue
			}
			rec.sortHighSecond()
			if !rec.acceptable(cfg.ArtiFreq, cfg.Alphabet) {
				continue
			}
			if rec.analyzeNgrams(freqs.LowFreq, cfg.ArtiFreq, cfg.shortLimit(), cfg.Alphabet.Separator, cfg.Alphabet.HasSep, acc.disMap, acc.disCnt, acc.ngram) {
				continue
			}
			rec.fillFields(cfg.ArtiFreq)
			rec.KWC = kwc
			mergeRecord(acc.records, rec.Key(), rec)
		}
	}
}

// Result is the full output of Run: the LD-records, the ".short" file
// (unigram-surviving n-gram parts) and the ".ambi" file (ambiguous
// bigram-to-unigram promotions).
type Result struct {
	Records map[string]*Record
	Short   []*Record
	Ambi    map[string][]string
}

// Run expands every (outer CCV, anagram key) pair named in idx into
// concrete variant/candidate records, applying the full filter chain.
// Work is partitioned by pool across the outer CCVs; each worker
// accumulates locally and merges into the shared result under one mutex
// at the end.
func Run(ctx context.Context, idx indexer.Index, hashMap map[uint64]map[string]struct{}, freqs *FreqTables, cfg Config, pool *ticclrun.Pool) (*Result, error) {
	outer := make([]uint64, 0, len(idx))
	for k := range idx {
		outer = append(outer, k)
	}
	sort.Slice(outer, func(i, j int) bool { return outer[i] < outer[j] })

	shared := newAccumulator()
	var mu sync.Mutex
	handledTrans := make(map[uint64]bool)
	var transMu sync.Mutex

	err := pool.Slice(ctx, len(outer), func(ctx context.Context, worker, lo, hi int) error {
		local := newAccumulator()
		for _, mainKey := range outer[lo:hi] {
			isKHC := false
			if _, ok := cfg.HistSet[mainKey]; ok {
				isKHC = true
			}
			isDiac := false
			if _, ok := cfg.DiacSet[mainKey]; ok {
				isDiac = true
			}
			for _, key := range idx[mainKey] {
				sit1, ok := hashMap[key]
				if !ok {
					continue
				}
				if len(sit1) > 0 && cfg.LDValue >= 2 {
					transMu.Lock()
					doTrans := !handledTrans[key]
					if doTrans {
						handledTrans[key] = true
					}
					transMu.Unlock()
					if doTrans {
						local.handleTranspositions(sit1, key, freqs, cfg, isKHC, isDiac)
					}
				}
				sit2, ok := hashMap[mainKey+key]
				if !ok {
					continue
				}
				local.compareSets(cfg.LDValue, mainKey, key, sit1, sit2, freqs, cfg, isKHC, isDiac)
			}
		}
		mu.Lock()
		local.mergeInto(shared)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	// .short file: one record per disambiguation pair that survived as a
	// "short" n-gram part, built fresh from the accumulated counts.
	var short []*Record
	disKeys := make([]string, 0, len(shared.disCnt))
	for k := range shared.disCnt {
		disKeys = append(disKeys, k)
	}
	sort.Strings(disKeys)
	for _, k := range disKeys {
		left, right, ok := strings.Cut(k, "~")
		if !ok {
			continue
		}
		rec := newRecord(left, right, 0, 0, freqs.Freq, freqs.LowFreq, false, false, false)
		if !rec.ldCheck(cfg.LDValue) {
			continue
		}
		rec.fillFields(cfg.ArtiFreq)
		rec.NgramPoint = shared.disCnt[k]
		short = append(short, rec)
	}

	// Propagate ngram-pair counts back to any LD-record that happens to
	// share the same key as the differing unigram pair: the ambiguous
	// bigram-to-unigram promotion.
	lowNgram := make(map[string]int, len(shared.ngram))
	for k, v := range shared.ngram {
		lowNgram[strings.ToLower(k)] += v
	}
	for k := range shared.ngram {
		if rec, ok := shared.records[k]; ok {
			rec.NgramPoint += lowNgram[strings.ToLower(k)]
		}
	}

	ambi := make(map[string][]string, len(shared.disMap))
	for k, set := range shared.disMap {
		ambi[k] = sortedStrings(set)
	}

	return &Result{Records: shared.records, Short: short, Ambi: ambi}, nil
}

// WriteRecords writes the ".ldcalc" file: one Marshal()'d line per
// record, sorted by key for reproducibility across runs.
func WriteRecords(w io.Writer, records map[string]*Record) error {
	bw := ticclio.BufferedWriter(w)
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintln(bw, records[k].Marshal())
	}
	return bw.Flush()
}

// WriteShort writes the ".short.ldcalc" file.
func WriteShort(w io.Writer, recs []*Record) error {
	bw := ticclio.BufferedWriter(w)
	for _, r := range recs {
		fmt.Fprintln(bw, r.Marshal())
	}
	return bw.Flush()
}

// WriteAmbi writes the ".ldcalc.ambi" file:
// "disambPair#original1#original2#...\n" per line.
func WriteAmbi(w io.Writer, ambi map[string][]string) error {
	bw := ticclio.BufferedWriter(w)
	keys := make([]string, 0, len(ambi))
	for k := range ambi {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(bw, "%s#", k)
		for _, v := range ambi[k] {
			fmt.Fprintf(bw, "%s#", v)
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}
