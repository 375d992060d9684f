package chain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/LanguageMachines/ticcltools/internal/ticclerr"
	"github.com/LanguageMachines/ticcltools/internal/ticclio"

	"io"
)

// Edge is one row of a ".chained" file: the unit Chainclean resolves
// ambiguity over.
type Edge struct {
	Variant   string
	VarFreq   uint64
	Candidate string
	CandFreq  uint64
	CCVal     string // "" when absent
	LD        int
}

type edgeState struct {
	Edge
	vParts    []string
	vDHParts  []string
	ccParts   []string
	ccDHParts []string
	deleted   bool
}

const partSeparator = '_'

func splitParts(s string, sep rune) []string {
	return strings.Split(s, string(sep))
}

// splitAtFirstOf splits s at the first rune that is either the n-gram
// separator or a hyphen, giving at most two parts: this feeds the
// diachronic-hyphenation match Chainclean performs, which is deliberately
// coarser than the full n-gram split splitParts does.
func splitAtFirstOf(s string, sep rune) []string {
	idx := strings.IndexFunc(s, func(r rune) bool { return r == sep || r == '-' })
	if idx < 0 {
		return []string{s}
	}
	return []string{s[:idx], s[idx+1:]}
}

func foldKey(s string, caseless bool) string {
	if caseless {
		return strings.ToLower(s)
	}
	return s
}

// Chainclean resolves the remaining ambiguity in a set of chained edges:
// when several multi-gram variants share an unresolved ("unknown") part,
// only the correction that best explains that part across the whole set
// is kept, and every other edge touching that part (unigram or multigram)
// is either confirmed or marked for deletion. validated reports whether a
// word is a member of the trusted lexicon; edges whose
// total n-gram length is at or below low are deleted outright, the
// "--low" minimum-character-count rule.
func Chainclean(edges []Edge, validated func(string) bool, low int, caseless bool) (kept []Edge, deleted []Edge) {
	states := make([]*edgeState, len(edges))
	for i, e := range edges {
		st := &edgeState{Edge: e}
		st.vParts = splitParts(e.Variant, partSeparator)
		st.vDHParts = splitAtFirstOf(e.Variant, partSeparator)
		st.ccParts = splitParts(e.Candidate, partSeparator)
		st.ccDHParts = splitAtFirstOf(e.Candidate, partSeparator)
		states[i] = st
	}

	partsFreq := make(map[string]int)
	var partsOrder []string
	for _, st := range states {
		if len(st.vParts) == 1 {
			continue
		}
		for _, p := range st.vParts {
			key := foldKey(p, caseless)
			if validated(key) {
				continue
			}
			if _, seen := partsFreq[key]; !seen {
				partsOrder = append(partsOrder, key)
			}
			partsFreq[key]++
		}
	}
	sort.SliceStable(partsOrder, func(i, j int) bool { return partsFreq[partsOrder[i]] > partsFreq[partsOrder[j]] })

	for _, st := range states {
		if len(st.vParts) == 1 {
			continue
		}
		total := 0
		for _, p := range st.vParts {
			total += len([]rune(p))
		}
		if total <= low {
			st.deleted = true
		}
	}

	done := make(map[string]string)
	doneStates := make(map[*edgeState]struct{})

	for _, unkPart := range partsOrder {
		ccFreq := make(map[string]int)
		var ccOrder []string
		for _, st := range states {
			matched := false
			for _, p := range st.vDHParts {
				if foldKey(p, caseless) == unkPart {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
			for _, cp := range st.ccDHParts {
				key := foldKey(cp, caseless)
				if _, seen := ccFreq[key]; !seen {
					ccOrder = append(ccOrder, key)
				}
				ccFreq[key]++
			}
		}
		candidates := append([]string(nil), ccOrder...)
		sort.SliceStable(candidates, func(i, j int) bool { return ccFreq[candidates[i]] > ccFreq[candidates[j]] })

		for _, candCor := range candidates {
			uniq := make(map[string]struct{})
			for _, st := range states {
				if st.deleted {
					continue
				}
				if _, isDone := doneStates[st]; isDone {
					continue
				}
				if len(st.vParts) == 1 {
					vari := foldKey(st.Variant, caseless)
					corr := foldKey(st.Candidate, caseless)
					if vari == unkPart && strings.Contains(corr, candCor) {
						done[corr] = vari
						doneStates[st] = struct{}{}
						if len(st.ccParts) == 1 {
							uniq[vari] = struct{}{}
						}
					}
					continue
				}
				skip := false
				for _, vp := range st.vParts {
					if _, ok := uniq[foldKey(vp, caseless)]; ok {
						st.deleted = true
						skip = true
						break
					}
				}
				if skip {
					continue
				}
				for _, cp := range st.ccParts {
					corPart := foldKey(cp, caseless)
					if candCor != corPart {
						continue
					}
					match := false
					for _, p := range st.vParts {
						if foldKey(p, caseless) == unkPart {
							match = true
							break
						}
					}
					if !match {
						break
					}
					lvar := foldKey(st.Variant, caseless)
					if v, ok := done[corPart]; ok {
						if _, isUniq := uniq[unkPart]; isUniq {
							st.deleted = true
						} else if strings.Contains(lvar, v) {
							st.deleted = true
						} else {
							done[corPart] = lvar
							doneStates[st] = struct{}{}
						}
					} else {
						done[corPart] = lvar
						doneStates[st] = struct{}{}
					}
					break
				}
			}
		}
	}

	for _, st := range states {
		if st.deleted {
			deleted = append(deleted, st.Edge)
		} else {
			kept = append(kept, st.Edge)
		}
	}
	return kept, deleted
}

// ParseEdge parses one ".chained" line back into an Edge. The trailing
// "#C"/"#D" marker is accepted and discarded.
func ParseEdge(line string) (Edge, error) {
	fields := strings.Split(line, "#")
	if len(fields) != 6 && len(fields) != 7 {
		return Edge{}, fmt.Errorf("expected 6 or 7 '#'-separated fields, got %d", len(fields))
	}
	varFreq, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return Edge{}, err
	}
	candFreq, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return Edge{}, err
	}
	e := Edge{Variant: fields[0], VarFreq: varFreq, Candidate: fields[2], CandFreq: candFreq}
	if len(fields) == 7 {
		e.CCVal = fields[4]
		e.LD, err = strconv.Atoi(fields[5])
	} else {
		e.LD, err = strconv.Atoi(fields[4])
	}
	if err != nil {
		return Edge{}, err
	}
	return e, nil
}

// ReadEdges parses a whole ".chained" file into Edges.
func ReadEdges(r io.Reader) ([]Edge, error) {
	var out []Edge
	sc := ticclio.ScanLines(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" {
			continue
		}
		e, err := ParseEdge(line)
		if err != nil {
			return nil, ticclerr.NewFormat("chained", lineNo, line, err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading chained file: %v", ticclerr.ErrIO, err)
	}
	return out, nil
}

// WriteEdges writes edges in the ".chained"/".cleaned"/".dirty" line
// format, sorted by variant for reproducibility. The trailing marker is
// "C" for kept edges and "D" when the edges are the deleted set.
func WriteEdges(w io.Writer, edges []Edge, deleted bool) error {
	marker := "C"
	if deleted {
		marker = "D"
	}
	bw := ticclio.BufferedWriter(w)
	sorted := append([]Edge(nil), edges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Variant < sorted[j].Variant })
	for _, e := range sorted {
		fmt.Fprintf(bw, "%s#%d#%s#%d", e.Variant, e.VarFreq, e.Candidate, e.CandFreq)
		if e.CCVal != "" {
			fmt.Fprintf(bw, "#%s", e.CCVal)
		}
		fmt.Fprintf(bw, "#%d#%s\n", e.LD, marker)
	}
	return bw.Flush()
}
