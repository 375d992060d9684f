// Package anahash hashes a word-frequency corpus into anagram-hash
// buckets: every distinct word is placed under the bucket its hash value
// names, and the bucket is what downstream indexing and ranking treat as a
// single confusable set.
package anahash

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/LanguageMachines/ticcltools/alphabet"
	"github.com/LanguageMachines/ticcltools/internal/ticclerr"
	"github.com/LanguageMachines/ticcltools/internal/ticclio"
)

// DefaultSeparator is the n-gram part separator used when none is given.
const DefaultSeparator = '_'

// FilterTildeHash replaces '~' and '#' with '_': those two runes are the
// anagram-file field separators, so a word containing one would corrupt
// the output format.
func FilterTildeHash(w string) string {
	return strings.NewReplacer("~", "_", "#", "_").Replace(w)
}

// Buckets maps an anagram hash to the set of distinct words that hash to
// it.
type Buckets map[uint64]map[string]struct{}

func (b Buckets) insert(h uint64, word string) {
	set, ok := b[h]
	if !ok {
		set = make(map[string]struct{})
		b[h] = set
	}
	set[word] = struct{}{}
}

// Corpus is the result of hashing a frequency list: the anagram buckets
// and the per-word frequency table (keyed by the tilde/hash-filtered
// word, matching what went into Buckets).
type Corpus struct {
	Buckets Buckets
	Freq    map[string]uint64
}

// parseFreqLine splits a "word" or "word<TAB>freq" line. A line with more
// than two tab-separated fields is a format error.
func parseFreqLine(line string) (word string, freq uint64, err error) {
	fields := strings.Split(line, "\t")
	switch len(fields) {
	case 1:
		return fields[0], 1, nil
	case 2:
		f, perr := strconv.ParseUint(fields[1], 10, 64)
		if perr != nil {
			return "", 0, perr
		}
		return fields[0], f, nil
	default:
		return "", 0, fmt.Errorf("expected 1 or 2 tab-separated fields, got %d", len(fields))
	}
}

// HashCorpus reads a FoLiA-stats-format frequency list (one "word" or
// "word<TAB>freq" per line) and hashes every word into its anagram bucket.
// Words shorter than low or longer than high runes are dropped; either
// bound is disabled when 0.
func HashCorpus(r io.Reader, a *alphabet.Alphabet, low, high int) (*Corpus, error) {
	c := &Corpus{Buckets: make(Buckets), Freq: make(map[string]uint64)}
	sc := ticclio.ScanLines(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" {
			continue
		}
		word, freq, err := parseFreqLine(line)
		if err != nil {
			return nil, ticclerr.NewFormat("corpus", lineNo, line, err)
		}
		n := utf8.RuneCountInString(word)
		if low > 0 && n < low {
			continue
		}
		if high > 0 && n > high {
			continue
		}
		filtered := FilterTildeHash(word)
		h := alphabet.Hash(filtered, a)
		c.Buckets.insert(h, filtered)
		c.Freq[filtered] = freq
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading corpus: %v", ticclerr.ErrIO, err)
	}
	return c, nil
}

// WriteList streams a "word<TAB>hash" list, one line per input line,
// preserving input order; it does not build buckets and is the low-memory
// counterpart to HashCorpus.
func WriteList(w io.Writer, r io.Reader, a *alphabet.Alphabet) error {
	bw := ticclio.BufferedWriter(w)
	sc := ticclio.ScanLines(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" {
			continue
		}
		word, _, err := parseFreqLine(line)
		if err != nil {
			return ticclerr.NewFormat("corpus", lineNo, line, err)
		}
		filtered := FilterTildeHash(word)
		h := alphabet.Hash(filtered, a)
		fmt.Fprintf(bw, "%s\t%d\n", word, h)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%w: reading corpus: %v", ticclerr.ErrIO, err)
	}
	return bw.Flush()
}

// ComputeFoci picks out the "artificial frequency" candidates from freq:
// words seen fewer than artifreq times whose lower-cased form is either
// absent or also below artifreq. When doNgrams is true, words are first
// split on separator and the test is applied per part; a word is accepted
// if at least one part qualifies, and the whole (lower-cased) word is
// filed under the hash of its original-case form. artifreq == 0 disables
// foci entirely (the caller should skip calling ComputeFoci in that case).
func ComputeFoci(freq map[string]uint64, a *alphabet.Alphabet, artifreq uint64, separator rune, doNgrams bool) Buckets {
	foci := make(Buckets)
	for word, f := range freq {
		h := alphabet.Hash(word, a)
		if doNgrams {
			parts := strings.Split(word, string(separator))
			if len(parts) == 0 {
				continue
			}
			accept := false
			for _, part := range parts {
				pf, ok := freq[part]
				if !ok || pf >= artifreq {
					continue
				}
				lower := strings.ToLower(part)
				lf, lok := freq[lower]
				if !lok || lf < artifreq {
					accept = true
				}
			}
			if accept {
				foci.insert(h, strings.ToLower(word))
			}
			continue
		}
		if f >= artifreq {
			continue
		}
		lower := strings.ToLower(word)
		lf, lok := freq[lower]
		if !lok || lf < artifreq {
			foci.insert(h, lower)
		}
	}
	return foci
}

// MergeBackground folds a background frequency list into buckets (adding
// every background word to its anagram bucket) and into merged, a running
// word->frequency table keyed by the background file's original-case
// words. merged should be pre-seeded by the caller with the primary
// corpus's own frequencies when the artifreq accounting requires it (the
// caller decides; MergeBackground only accumulates).
func MergeBackground(r io.Reader, a *alphabet.Alphabet, buckets Buckets, merged map[string]uint64) error {
	sc := ticclio.ScanLines(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" {
			continue
		}
		word, freq, err := parseFreqLine(line)
		if err != nil {
			return ticclerr.NewFormat("background", lineNo, line, err)
		}
		filtered := FilterTildeHash(word)
		h := alphabet.Hash(filtered, a)
		buckets.insert(h, filtered)
		merged[word] += freq
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%w: reading background corpus: %v", ticclerr.ErrIO, err)
	}
	return nil
}

// WriteAnagramFile writes the ".anahash" format: one "hash~word1#word2#..."
// line per bucket, hashes ascending and words within a bucket
// alphabetically sorted.
func WriteAnagramFile(w io.Writer, b Buckets) error {
	bw := ticclio.BufferedWriter(w)
	hashes := make([]uint64, 0, len(b))
	for h := range b {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
	for _, h := range hashes {
		words := make([]string, 0, len(b[h]))
		for word := range b[h] {
			words = append(words, word)
		}
		sort.Strings(words)
		fmt.Fprintf(bw, "%d~%s\n", h, strings.Join(words, "#"))
	}
	return bw.Flush()
}

// WriteMergedFile writes the ".merged" format: one "word<TAB>freq" line
// per entry, sorted alphabetically by word.
func WriteMergedFile(w io.Writer, merged map[string]uint64) error {
	bw := ticclio.BufferedWriter(w)
	words := make([]string, 0, len(merged))
	for word := range merged {
		words = append(words, word)
	}
	sort.Strings(words)
	for _, word := range words {
		fmt.Fprintf(bw, "%s\t%d\n", word, merged[word])
	}
	return bw.Flush()
}
