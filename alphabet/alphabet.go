// Package alphabet implements the character-level primitives the rest of
// ticcltools is built on: per-character codes, the additive anagram hash,
// and Levenshtein distance.
package alphabet

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/LanguageMachines/ticcltools/internal/ticclerr"
	"github.com/LanguageMachines/ticcltools/internal/ticclio"
)

// Alphabet maps lower-case runes to their 64-bit code, plus the two
// reserved codes and an optional n-gram separator rune.
type Alphabet struct {
	Codes     map[rune]uint64
	Separator rune
	HasSep    bool
}

// HighFive returns n^5, the code-assignment function every alphabet slot
// is derived from.
func HighFive(n int) uint64 {
	v := uint64(n)
	return v * v * v * v * v
}

// Reserved codes: H100 covers any punctuation run, H101 covers any
// out-of-alphabet character.
var (
	H100 = HighFive(100)
	H101 = HighFive(101)
)

// New returns an empty Alphabet ready for population.
func New() *Alphabet {
	return &Alphabet{Codes: make(map[rune]uint64)}
}

// FillAlphabet parses a ".lc.chars" alphabet file: header lines start with
// '#'; body lines are "symbol<TAB>freq<TAB>code". Entries with freq <= clip
// are dropped unless freq == 0 (reserved separator entry). A body line with
// other than 3 tab-separated fields is a format error.
func FillAlphabet(r io.Reader, clip int) (*Alphabet, error) {
	a := New()
	sc := ticclio.ScanLines(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return nil, ticclerr.NewFormat("alphabet", lineNo, line,
				fmt.Errorf("expected 3 tab-separated fields, got %d", len(fields)))
		}
		freq, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, ticclerr.NewFormat("alphabet", lineNo, line, err)
		}
		if freq <= clip && freq != 0 {
			continue
		}
		code, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return nil, ticclerr.NewFormat("alphabet", lineNo, line, err)
		}
		runes := []rune(fields[0])
		if len(runes) == 0 {
			return nil, ticclerr.NewFormat("alphabet", lineNo, line, fmt.Errorf("empty symbol field"))
		}
		sym := runes[0]
		if freq == 0 {
			a.Separator = sym
			a.HasSep = true
		}
		a.Codes[sym] = code
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading alphabet: %v", ticclerr.ErrIO, err)
	}
	return a, nil
}

// Hash computes the additive anagram hash of s: the string is lower-cased,
// space is skipped, a run of consecutive punctuation contributes H100 once,
// and any other out-of-alphabet rune contributes H101. Two strings share a
// hash iff they are character-multiset-equal under this coding.
func Hash(s string, a *Alphabet) uint64 {
	var result uint64
	inPunctRun := false
	for _, r := range strings.ToLower(s) {
		code, known := a.Codes[r]
		if known {
			result += code
			inPunctRun = false
			continue
		}
		if unicode.IsSpace(r) {
			continue
		}
		if unicode.IsPunct(r) {
			if !inPunctRun {
				result += H100
				inPunctRun = true
			}
			continue
		}
		result += H101
		inPunctRun = false
	}
	return result
}

// LD returns the Levenshtein edit distance between a and b, computed on
// runes with the classical two-row dynamic-programming buffer.
func LD(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 0; i < len(ra); i++ {
		cur[0] = i + 1
		for j := 0; j < len(rb); j++ {
			cost := 1
			if ra[i] == rb[j] {
				cost = 0
			}
			del := prev[j+1] + 1
			ins := cur[j] + 1
			sub := prev[j] + cost
			cur[j+1] = min3(del, ins, sub)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
