// Package chain links ranked variant/candidate pairs into head/table
// forests (a candidate earns a "head" once some other variant resolves to
// it) and then resolves the remaining ambiguity between multi-gram and
// unigram corrections of the same unknown part.
package chain

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

// Record is one line of a ".ranked" file: a variant, its best-ranked
// correction candidate, and (when the upstream ranker kept it) the
// character-confusion value and Levenshtein distance that produced it.
type Record struct {
	Variant   string
	VarFreq   uint64
	Candidate string
	CandFreq  uint64
	CCVal     string // empty when the ranked file carries no CCVal column
	LD        int
}

// Chain builds the head/table forest: Add folds one
// Record in, choosing or extending the head each variant ultimately
// resolves to, and FinalMerge collapses any head that itself became a
// member of another head's table.
type Chain struct {
	heads         map[string]string
	table         map[string]map[string]struct{}
	varFreq       map[string]uint64
	ccConf        map[string]string
	processed     map[string]struct{}
	caseless      bool
	noUnk         bool
	alpha         *alphabet.Alphabet
	ccValsPresent bool
	sawRecord     bool
}

// New builds an empty Chain. alpha serves the --nounk
// single-extra-character guard and the hash fallback Output uses for
// merged pairs that never appeared in the input.
func New(caseless, noUnk bool, alpha *alphabet.Alphabet) *Chain {
	return &Chain{
		heads:         make(map[string]string),
		table:         make(map[string]map[string]struct{}),
		varFreq:       make(map[string]uint64),
		ccConf:        make(map[string]string),
		processed:     make(map[string]struct{}),
		caseless:      caseless,
		noUnk:         noUnk,
		alpha:         alpha,
		ccValsPresent: true,
	}
}

// TopHead follows the head chain from candidate to its fixed point: the
// head that itself has no further head. It returns "" if candidate has no
// head at all.
func (c *Chain) TopHead(candidate string) string {
	result := c.heads[candidate]
	if result != "" {
		if next := c.TopHead(result); next != "" {
			result = next
		}
	}
	return result
}

func ldCompare(s1, s2 string, caseless bool) int {
	if caseless {
		s1, s2 = strings.ToLower(s1), strings.ToLower(s2)
	}
	return alphabet.LD(s1, s2)
}

// diffChar returns the first rune of s2 (lower-cased) that does not occur
// anywhere in s1 (lower-cased), and whether such a rune exists; used only
// by the --nounk guard.
func diffChar(s1, s2 string) (rune, bool) {
	ls1, ls2 := strings.ToLower(s1), strings.ToLower(s2)
	for _, r := range ls2 {
		if !strings.ContainsRune(ls1, r) {
			return r, true
		}
	}
	return 0, false
}

func (c *Chain) insertTable(head, word string) {
	set, ok := c.table[head]
	if !ok {
		set = make(map[string]struct{})
		c.table[head] = set
	}
	set[word] = struct{}{}
}

// Add folds one Record into the forest and always returns true: a record
// whose variant has already been seen (a ranker clip > 1 produces repeat
// entries) or whose candidate the --nounk guard rejects (the only
// difference from the variant is a single out-of-alphabet extra
// character) is silently skipped, not an error.
func (c *Chain) Add(rec Record) bool {
	if !c.sawRecord {
		c.ccValsPresent = rec.CCVal != ""
		c.sawRecord = true
	}
	if _, seen := c.processed[rec.Variant]; seen {
		return true
	}
	c.processed[rec.Variant] = struct{}{}

	if c.ccValsPresent && c.noUnk && rec.CCVal == fmt.Sprint(alphabet.H101) {
		if utf8.RuneCountInString(rec.Candidate) > utf8.RuneCountInString(rec.Variant) {
			if d, found := diffChar(rec.Variant, rec.Candidate); found && c.alpha != nil {
				if _, ok := c.alpha.Codes[d]; !ok {
					return true
				}
			}
		}
	}
	if c.ccValsPresent {
		c.ccConf[rec.Variant+rec.Candidate] = rec.CCVal
	}
	c.varFreq[rec.Variant] = rec.VarFreq
	c.varFreq[rec.Candidate] = rec.CandFreq

	head := c.heads[rec.Variant]
	if head == "" {
		head2 := c.heads[rec.Candidate]
		if head2 == "" {
			c.heads[rec.Variant] = rec.Candidate
			c.insertTable(rec.Candidate, rec.Variant)
		} else {
			c.heads[rec.Variant] = head2
			c.insertTable(head2, rec.Variant)
		}
	}
	return true
}

// FinalMerge collapses every head that is itself a member of some other
// head's table into that higher head, one pass, following TopHead to its
// fixed point.
func (c *Chain) FinalMerge() {
	words := make([]string, 0, len(c.table))
	for w := range c.table {
		words = append(words, w)
	}
	sort.Strings(words)
	for _, word := range words {
		set := c.table[word]
		if len(set) == 0 {
			continue
		}
		head := c.TopHead(word)
		if head == "" {
			continue
		}
		for s := range set {
			c.insertTable(head, s)
			c.heads[s] = head
		}
		c.table[word] = make(map[string]struct{})
	}
}

type outLine struct {
	freq uint64
	line string
}

// Output writes the ".chained" format: one line per (head, member) pair,
// "member#memberfreq#head#headfreq[#ccval]#ld#C", sorted by the head's
// frequency descending, ties broken alphabetically for determinism.
func (c *Chain) Output(w io.Writer) error {
	var lines []outLine
	heads := make([]string, 0, len(c.table))
	for h := range c.table {
		heads = append(heads, h)
	}
	sort.Strings(heads)
	for _, head := range heads {
		members := make([]string, 0, len(c.table[head]))
		for m := range c.table[head] {
			members = append(members, m)
		}
		sort.Strings(members)
		for _, m := range members {
			var sb strings.Builder
			fmt.Fprintf(&sb, "%s#%d#%s#%d", m, c.varFreq[m], head, c.varFreq[head])
			if c.ccValsPresent {
				val, ok := c.ccConf[m+head]
				if !ok || val == "" {
					h1 := alphabet.Hash(m, c.alpha)
					h2 := alphabet.Hash(head, c.alpha)
					var diff uint64
					if h1 > h2 {
						diff = h1 - h2
					} else {
						diff = h2 - h1
					}
					val = strconv.FormatUint(diff, 10)
					c.ccConf[m+head] = val
				}
				fmt.Fprintf(&sb, "#%s", val)
			}
			fmt.Fprintf(&sb, "#%d#C", ldCompare(head, m, c.caseless))
			lines = append(lines, outLine{freq: c.varFreq[head], line: sb.String()})
		}
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].freq > lines[j].freq })
	bw := ticclio.BufferedWriter(w)
	for _, l := range lines {
		fmt.Fprintln(bw, l.line)
	}
	return bw.Flush()
}

// ParseRecord parses one ".ranked" line:
// "variant#varfreq#candidate#candfreq[#ccval]#ld#rank". A line with 6
// fields has no CCVal column; 7 fields include it. The trailing rank
// field is carried by the ranker for humans and ignored here.
func ParseRecord(line string) (Record, error) {
	parts := strings.Split(line, "#")
	if len(parts) != 6 && len(parts) != 7 {
		return Record{}, fmt.Errorf("expected 6 or 7 '#'-separated fields, got %d", len(parts))
	}
	varFreq, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return Record{}, err
	}
	candFreq, err := strconv.ParseUint(parts[3], 10, 64)
	if err != nil {
		return Record{}, err
	}
	r := Record{Variant: parts[0], VarFreq: varFreq, Candidate: parts[2], CandFreq: candFreq}
	if len(parts) == 7 {
		r.CCVal = parts[4]
		r.LD, err = strconv.Atoi(parts[5])
	} else {
		r.LD, err = strconv.Atoi(parts[4])
	}
	if err != nil {
		return Record{}, err
	}
	return r, nil
}

// ReadRecords parses a whole ".ranked" file.
func ReadRecords(r io.Reader) ([]Record, error) {
	var out []Record
	sc := ticclio.ScanLines(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" {
			continue
		}
		rec, err := ParseRecord(line)
		if err != nil {
			return nil, ticclerr.NewFormat("ranked", lineNo, line, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading ranked file: %v", ticclerr.ErrIO, err)
	}
	return out, nil
}
