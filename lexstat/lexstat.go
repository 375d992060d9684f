// Package lexstat turns a wordlist into an alphabet file (character codes)
// and a character-confusion file (CCVs for every 1-, 2- and 3-character
// edit up to the configured depth).
package lexstat

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/LanguageMachines/ticcltools/alphabet"
	"github.com/LanguageMachines/ticcltools/internal/ticclio"
)

// CharCode pairs an alphabet symbol with its assigned code, kept in the
// ascending order BuildAlphabet assigned them in.
type CharCode struct {
	Sym  string
	Freq int
	Code uint64
}

// BuildAlphabet assigns codes to the runes observed in counts: entries with
// frequency <= clip are dropped, the two reserved codes (H100, H101) are
// always present, an optional separator gets the next free slot, and the
// remaining characters are assigned high_five(102), high_five(103), ... in
// descending frequency order.
func BuildAlphabet(counts map[rune]int, clip int, separator rune, hasSep bool) (*alphabet.Alphabet, []CharCode) {
	a := alphabet.New()

	type kept struct {
		r rune
		f int
	}
	var keptChars []kept
	for r, f := range counts {
		if f > clip {
			keptChars = append(keptChars, kept{r, f})
		}
	}
	sort.Slice(keptChars, func(i, j int) bool {
		if keptChars[i].f != keptChars[j].f {
			return keptChars[i].f > keptChars[j].f
		}
		return keptChars[i].r < keptChars[j].r
	})

	entries := []CharCode{
		{Sym: "*", Freq: 0, Code: alphabet.H100},
		{Sym: "$", Freq: 0, Code: alphabet.H101},
	}
	start := 102
	if hasSep {
		a.Separator = separator
		a.HasSep = true
		sepCode := alphabet.HighFive(start)
		a.Codes[separator] = sepCode
		entries = append(entries, CharCode{Sym: string(separator), Freq: 0, Code: sepCode})
		start++
	}
	for _, kc := range keptChars {
		code := alphabet.HighFive(start)
		a.Codes[kc.r] = code
		entries = append(entries, CharCode{Sym: string(kc.r), Freq: kc.f, Code: code})
		start++
	}
	return a, entries
}

// CountRunes builds the per-rune frequency table an alphabet is built from:
// every line of r is lower-cased and each rune is counted once per
// occurrence.
func CountRunes(r io.Reader) (map[rune]int, error) {
	counts := make(map[rune]int)
	sc := ticclio.ScanLines(r)
	for sc.Scan() {
		line := strings.ToLower(sc.Text())
		for _, rn := range line {
			counts[rn]++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("counting runes: %w", err)
	}
	return counts, nil
}

// WriteAlphabetFile writes the ".lc.chars" format: a header comment
// followed by "symbol<TAB>freq<TAB>code" body lines, reserved entries
// first.
func WriteAlphabetFile(w io.Writer, entries []CharCode, orig string) error {
	bw := ticclio.BufferedWriter(w)
	fmt.Fprintf(bw, "## Alphabetsize: %d\n", len(entries))
	fmt.Fprintf(bw, "## Original file : %s\n", orig)
	for _, e := range entries {
		fmt.Fprintf(bw, "%s\t%d\t%d\n", e.Sym, e.Freq, e.Code)
	}
	return bw.Flush()
}

// WriteDiacriticFile emits the optional diacritic confusion file: for every
// alphabet codepoint c whose NFD-stripped form c' differs and is also
// hashed, record |code(c) - code(c')| # c ~ c'.
func WriteDiacriticFile(w io.Writer, entries []CharCode) error {
	bw := ticclio.BufferedWriter(w)
	byCode := make(map[string]uint64, len(entries))
	for _, e := range entries {
		byCode[e.Sym] = e.Code
	}
	for _, e := range entries {
		if len([]rune(e.Sym)) != 1 {
			continue
		}
		stripped := stripDiacritics(e.Sym)
		if stripped == e.Sym {
			continue
		}
		other, ok := byCode[stripped]
		if !ok {
			continue
		}
		h := diff(e.Code, other)
		fmt.Fprintf(bw, "%d#%s~%s\n", h, e.Sym, stripped)
	}
	return bw.Flush()
}

func stripDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}

func diff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

// Mode selects how many pairs GenerateConfusions keeps per CCV.
type Mode int

const (
	// ModeFirst keeps one representative pair per CCV.
	ModeFirst Mode = iota
	// ModeAll keeps every pair.
	ModeAll
)

// Confusion is one emitted "left~right" pair and the CCV it hashes to.
type Confusion struct {
	CCV   uint64
	Left  string
	Right string
}

// collisionWarnThreshold is the "more than eight distinct pairs sharing a
// CCV" warning threshold.
const collisionWarnThreshold = 8

// GenerateConfusions enumerates every 1-0, 1-1, 2-0, 2-1, 1-2, 2-2, 3-0,
// 3-1, 1-3, 3-2, 2-3 and 3-3 substitution shape over chars (depth-gated by
// depth), computes each shape's CCV, and returns the kept confusions in
// CCV-ascending order. chars must be sorted ascending by Sym. The caller
// passes the full alphabet, reserved entries ("*"/H100, "$"/H101) and any
// separator included, so substitution shapes involving those sentinels
// (e.g. "*~a") are enumerated too.
func GenerateConfusions(chars []CharCode, depth int, mode Mode, log ticclio.Logger) []Confusion {
	if log == nil {
		log = ticclio.Nop
	}
	type kv struct {
		ccv   uint64
		pairs map[string]struct{}
		order []string // first-seen order, used by ModeFirst
	}
	byCCV := make(map[uint64]*kv)
	insert := func(ccv uint64, pair string) {
		e, ok := byCCV[ccv]
		if !ok {
			e = &kv{ccv: ccv, pairs: make(map[string]struct{})}
			byCCV[ccv] = e
		}
		if _, seen := e.pairs[pair]; seen {
			return
		}
		e.pairs[pair] = struct{}{}
		if mode == ModeFirst && len(e.order) > 0 {
			return
		}
		e.order = append(e.order, pair)
	}

	// The nested loops keep deliberately asymmetric index-distinctness
	// guards (e.g. the 2-0 shape does not require i2 != i1, letting a
	// single character double up as a 2-character deletion; 3-0 carries
	// no distinctness guard at all). Flattening them into one symmetric
	// rule would silently drop confusions.
	n := len(chars)
	for i1 := 0; i1 < n; i1++ {
		c1 := chars[i1]
		// 1-0: deletion
		insert(c1.Code, c1.Sym+"~")
		for i2 := 0; i2 < n; i2++ {
			if i2 == i1 {
				continue
			}
			c2 := chars[i2]
			// 1-1: substitution
			insert(absDiff(c1.Code, c2.Code), c1.Sym+"~"+c2.Sym)
		}

		if depth < 2 {
			continue
		}
		for i2 := 0; i2 < n; i2++ {
			c2 := chars[i2]
			// 2-0: two-character deletion (i2 may equal i1)
			insert(c1.Code+c2.Code, c1.Sym+c2.Sym+"~")
			for i3 := 0; i3 < n; i3++ {
				c3 := chars[i3]
				if i3 != i2 && i3 != i1 {
					// 2-1
					insert(absDiff(c1.Code+c2.Code, c3.Code), c1.Sym+c2.Sym+"~"+c3.Sym)
				}
				if i2 != i1 && i3 != i1 {
					// 1-2
					insert(absDiff(c1.Code, c2.Code+c3.Code), c1.Sym+"~"+c2.Sym+c3.Sym)
				}
				for i4 := 0; i4 < n; i4++ {
					c4 := chars[i4]
					if i3 != i1 && i3 != i2 && i4 != i1 && i4 != i2 {
						// 2-2
						insert(absDiff(c1.Code+c2.Code, c3.Code+c4.Code), c1.Sym+c2.Sym+"~"+c3.Sym+c4.Sym)
					}

					if depth < 3 {
						continue
					}
					// 3-0: no distinctness guard.
					insert(c1.Code+c2.Code+c3.Code, c1.Sym+c2.Sym+c3.Sym+"~")
					if i4 != i1 && i4 != i2 && i4 != i3 {
						// 3-1
						insert(absDiff(c1.Code+c2.Code+c3.Code, c4.Code), c1.Sym+c2.Sym+c3.Sym+"~"+c4.Sym)
					}
					if i2 != i1 && i3 != i1 && i4 != i1 {
						// 1-3
						insert(absDiff(c1.Code, c2.Code+c3.Code+c4.Code), c1.Sym+"~"+c2.Sym+c3.Sym+c4.Sym)
					}
					for i5 := 0; i5 < n; i5++ {
						c5 := chars[i5]
						if i4 != i1 && i4 != i2 && i4 != i3 && i5 != i1 && i5 != i2 && i5 != i3 {
							// 3-2
							insert(absDiff(c1.Code+c2.Code+c3.Code, c4.Code+c5.Code), c1.Sym+c2.Sym+c3.Sym+"~"+c4.Sym+c5.Sym)
						}
						if i3 != i1 && i3 != i2 && i4 != i1 && i4 != i2 && i5 != i1 && i5 != i2 {
							// 2-3
							insert(absDiff(c1.Code+c2.Code, c3.Code+c4.Code+c5.Code), c1.Sym+c2.Sym+"~"+c3.Sym+c4.Sym+c5.Sym)
						}
						for i6 := 0; i6 < n; i6++ {
							c6 := chars[i6]
							if i6 != i1 && i6 != i2 && i6 != i3 &&
								i5 != i1 && i5 != i2 && i5 != i3 &&
								i4 != i1 && i4 != i2 && i4 != i3 {
								// 3-3
								insert(absDiff(c1.Code+c2.Code+c3.Code, c4.Code+c5.Code+c6.Code),
									c1.Sym+c2.Sym+c3.Sym+"~"+c4.Sym+c5.Sym+c6.Sym)
							}
						}
					}
				}
			}
		}
	}

	ccvs := make([]uint64, 0, len(byCCV))
	for ccv := range byCCV {
		ccvs = append(ccvs, ccv)
	}
	sort.Slice(ccvs, func(i, j int) bool { return ccvs[i] < ccvs[j] })

	var out []Confusion
	for _, ccv := range ccvs {
		e := byCCV[ccv]
		if len(e.pairs) > collisionWarnThreshold {
			log.Warnf("collision at CCV %d: %d distinct pairs", ccv, len(e.pairs))
		}
		pairs := e.order
		sort.Strings(pairs)
		if mode == ModeFirst {
			left, right, _ := strings.Cut(pairs[0], "~")
			out = append(out, Confusion{CCV: ccv, Left: left, Right: right})
			continue
		}
		for _, p := range pairs {
			left, right, _ := strings.Cut(p, "~")
			out = append(out, Confusion{CCV: ccv, Left: left, Right: right})
		}
	}
	return out
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

// WriteConfusionFile writes the ".charconfus" format: one line per CCV,
// "ccv#a~b" in ModeFirst, "ccv#a1~b1#a2~b2..." in ModeAll.
func WriteConfusionFile(w io.Writer, confusions []Confusion, mode Mode) error {
	bw := ticclio.BufferedWriter(w)
	if mode == ModeFirst {
		for _, c := range confusions {
			fmt.Fprintf(bw, "%d#%s~%s\n", c.CCV, c.Left, c.Right)
		}
		return bw.Flush()
	}
	var curCCV uint64
	first := true
	for i, c := range confusions {
		if first || c.CCV != curCCV {
			if !first {
				fmt.Fprintln(bw)
			}
			fmt.Fprintf(bw, "%d", c.CCV)
			curCCV = c.CCV
			first = false
		}
		fmt.Fprintf(bw, "#%s~%s", c.Left, c.Right)
		if i == len(confusions)-1 {
			fmt.Fprintln(bw)
		}
	}
	return bw.Flush()
}
