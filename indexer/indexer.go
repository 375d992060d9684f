// Package indexer finds, for every known character-confusion value, the
// pairs of corpus anagram hashes that differ by exactly that value. It
// implements the two index-building strategies the rest of the toolchain
// can choose between: a confusion-driven merge-join over the whole corpus
// hash set, and a word-driven scan outward from a restricted set of
// "focus" hashes.
package indexer

import (
	"bufio"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"io"

	"github.com/LanguageMachines/ticcltools/internal/ticclerr"
	"github.com/LanguageMachines/ticcltools/internal/ticclio"
	"github.com/LanguageMachines/ticcltools/internal/ticclrun"
)

// Index maps a character-confusion value to the set of anagram hashes that
// are the lower member of a pair differing by exactly that value: the
// higher member of any such pair is implicitly hash+confusion.
type Index map[uint64][]uint64

func (idx Index) insert(confusion, hash uint64) {
	set := idx[confusion]
	i := sort.Search(len(set), func(i int) bool { return set[i] >= hash })
	if i < len(set) && set[i] == hash {
		return
	}
	set = append(set, 0)
	copy(set[i+1:], set[i:])
	set[i] = hash
	idx[confusion] = set
}

func mergeInto(dst Index, src Index) {
	for confusion, hashes := range src {
		for _, h := range hashes {
			dst.insert(confusion, h)
		}
	}
}

// ReadAnaHashHashes reads a ".anahash" file ("hash~word1#word2#...") and
// returns the sorted, deduplicated set of hash values whose first word is
// between low and high runes long (inclusive); words outside that band
// are skipped (the same filter the index-building stages apply before
// candidate generation even starts).
func ReadAnaHashHashes(r io.Reader, low, high int) ([]uint64, error) {
	var out []uint64
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
			return nil, ticclerr.NewFormat("anahash", lineNo, line,
				fmt.Errorf("missing '~' separator"))
		}
		first := rest
		if i := strings.IndexByte(rest, '#'); i >= 0 {
			first = rest[:i]
		}
		if first == "" {
			continue
		}
		n := utf8.RuneCountInString(first)
		if n < low || n > high {
			continue
		}
		h, err := strconv.ParseUint(hashPart, 10, 64)
		if err != nil {
			return nil, ticclerr.NewFormat("anahash", lineNo, line, err)
		}
		out = append(out, h)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading anahash: %v", ticclerr.ErrIO, err)
	}
	return dedupSorted(out), nil
}

// ReadConfusionHashes reads a ".charconfus" file ("ccv#...") and returns
// the sorted, deduplicated set of CCVs it names.
func ReadConfusionHashes(r io.Reader) ([]uint64, error) {
	var out []uint64
	sc := ticclio.ScanLines(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" {
			continue
		}
		ccvPart, _, ok := strings.Cut(line, "#")
		if !ok {
			return nil, ticclerr.NewFormat("charconfus", lineNo, line,
				fmt.Errorf("missing '#' separator"))
		}
		ccv, err := strconv.ParseUint(ccvPart, 10, 64)
		if err != nil {
			return nil, ticclerr.NewFormat("charconfus", lineNo, line, err)
		}
		out = append(out, ccv)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading charconfus: %v", ticclerr.ErrIO, err)
	}
	return dedupSorted(out), nil
}

// ReadFociHashes reads a foci file: one hash per line, optionally followed
// by "~..." trailing text (the foci file shares the anagram-bucket
// format, but only the leading hash matters here).
func ReadFociHashes(r io.Reader) ([]uint64, error) {
	var out []uint64
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		hashPart := line
		if i := strings.IndexByte(line, '~'); i >= 0 {
			hashPart = line[:i]
		}
		h, err := strconv.ParseUint(hashPart, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, h)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading foci: %v", ticclerr.ErrIO, err)
	}
	return dedupSorted(out), nil
}

func dedupSorted(vals []uint64) []uint64 {
	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
	out := vals[:0]
	var prev uint64
	first := true
	for _, v := range vals {
		if first || v != prev {
			out = append(out, v)
		}
		prev = v
		first = false
	}
	return out
}

// RunConfusionDriven partitions confSet across pool and, for each
// confusion value, merge-joins hashSet against itself (both sorted
// ascending) to find every pair whose difference equals that value. When
// foci is non-empty, a pair is only kept if at least one of its two
// members is a member of foci.
func RunConfusionDriven(ctx context.Context, hashSet, confSet []uint64, foci map[uint64]struct{}, pool *ticclrun.Pool) (Index, error) {
	result := make(Index)
	var mu sync.Mutex
	err := pool.Slice(ctx, len(confSet), func(ctx context.Context, worker, lo, hi int) error {
		local := make(Index)
		for _, confusion := range confSet[lo:hi] {
			it1, it2 := 0, 0
			for it1 < len(hashSet) && it2 < len(hashSet) {
				v1 := hashSet[it1]
				var v2 uint64
				if hashSet[it2] >= confusion {
					v2 = hashSet[it2] - confusion
				}
				switch {
				case v1 == v2:
					keep := true
					if len(foci) > 0 {
						_, in1 := foci[v1]
						_, in2 := foci[hashSet[it2]]
						keep = in1 || in2
					}
					if keep {
						local.insert(confusion, v1)
					}
					it1++
					it2++
				case v1 < v2:
					it1++
				default:
					it2++
				}
			}
		}
		mu.Lock()
		mergeInto(result, local)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RunWordDriven partitions foci (the driving set) across pool and, for
// each anchor hash, scans outward in both directions through hashSet
// (sorted ascending) while the gap to the anchor stays within the largest
// known confusion value, recording a pair whenever that gap is itself a
// known confusion value. This is the restricted-search-space counterpart
// to RunConfusionDriven: it costs O(|foci| * local-neighborhood) instead
// of O(|confSet| * |hashSet|), at the price of only finding pairs that
// touch a focus hash.
func RunWordDriven(ctx context.Context, hashSet []uint64, confSet []uint64, foci []uint64, pool *ticclrun.Pool) (Index, error) {
	if len(confSet) == 0 || len(foci) == 0 {
		return make(Index), nil
	}
	confLookup := make(map[uint64]struct{}, len(confSet))
	maxConf := confSet[0]
	for _, c := range confSet {
		confLookup[c] = struct{}{}
		if c > maxConf {
			maxConf = c
		}
	}
	result := make(Index)
	var mu sync.Mutex
	err := pool.Slice(ctx, len(foci), func(ctx context.Context, worker, lo, hi int) error {
		local := make(Index)
		for _, anchor := range foci[lo:hi] {
			pos := sort.Search(len(hashSet), func(i int) bool { return hashSet[i] >= anchor })
			if pos >= len(hashSet) || hashSet[pos] != anchor {
				continue
			}
			for j := pos - 1; j >= 0; j-- {
				diff := anchor - hashSet[j]
				if diff > maxConf {
					break
				}
				if _, ok := confLookup[diff]; ok {
					local.insert(diff, hashSet[j])
				}
			}
			for k := pos + 1; k < len(hashSet); k++ {
				diff := hashSet[k] - anchor
				if diff > maxConf {
					break
				}
				if _, ok := confLookup[diff]; ok {
					local.insert(diff, anchor)
				}
			}
		}
		mu.Lock()
		mergeInto(result, local)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// WriteIndexFile writes the ".index"/".indexNT" format: one
// "confusion#h1,h2,...\n" line per confusion value, confusions and hashes
// both sorted ascending.
func WriteIndexFile(w io.Writer, idx Index) error {
	bw := ticclio.BufferedWriter(w)
	confusions := make([]uint64, 0, len(idx))
	for c := range idx {
		confusions = append(confusions, c)
	}
	sort.Slice(confusions, func(i, j int) bool { return confusions[i] < confusions[j] })
	for _, c := range confusions {
		hashes := idx[c]
		fmt.Fprintf(bw, "%d#", c)
		for i, h := range hashes {
			if i > 0 {
				bw.WriteByte(',')
			}
			fmt.Fprintf(bw, "%d", h)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ReadIndexFile reads a ".index"/".indexNT" file back into an Index, the
// counterpart callers in a later stage (started from a fresh process) use
// to pick an index up from disk instead of building it in-memory.
// Malformed lines are warned about and skipped; after ten of them the
// whole read aborts.
func ReadIndexFile(r io.Reader, log ticclio.Logger) (Index, error) {
	if log == nil {
		log = ticclio.Nop
	}
	idx := make(Index)
	var coll ticclerr.Collector
	badLine := func(lineNo int, line string, reason error) error {
		err := ticclerr.NewFormat("index", lineNo, line, reason)
		log.Warnf("%v", err)
		if coll.Add(err) {
			return fmt.Errorf("too many problems in indexfile: %w", coll.Err())
		}
		return nil
	}
	sc := ticclio.ScanLines(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" {
			continue
		}
		confPart, rest, ok := strings.Cut(line, "#")
		if !ok {
			if err := badLine(lineNo, line, fmt.Errorf("missing '#' separator")); err != nil {
				return nil, err
			}
			continue
		}
		confusion, err := strconv.ParseUint(confPart, 10, 64)
		if err != nil {
			if err := badLine(lineNo, line, err); err != nil {
				return nil, err
			}
			continue
		}
		if rest == "" {
			idx[confusion] = nil
			continue
		}
		hashStrs := strings.Split(rest, ",")
		hashes := make([]uint64, 0, len(hashStrs))
		var hashErr error
		for _, hs := range hashStrs {
			h, err := strconv.ParseUint(hs, 10, 64)
			if err != nil {
				hashErr = err
				break
			}
			hashes = append(hashes, h)
		}
		if hashErr != nil {
			if err := badLine(lineNo, line, hashErr); err != nil {
				return nil, err
			}
			continue
		}
		sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
		idx[confusion] = hashes
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading index: %v", ticclerr.ErrIO, err)
	}
	return idx, nil
}

// WriteConfStatsFile writes the "--confstats" format: one
// "confusion#count\n" line per confusion value, ascending.
func WriteConfStatsFile(w io.Writer, idx Index) error {
	bw := ticclio.BufferedWriter(w)
	confusions := make([]uint64, 0, len(idx))
	for c := range idx {
		confusions = append(confusions, c)
	}
	sort.Slice(confusions, func(i, j int) bool { return confusions[i] < confusions[j] })
	for _, c := range confusions {
		fmt.Fprintf(bw, "%d#%d\n", c, len(idx[c]))
	}
	return bw.Flush()
}
