// Command ticcl-rank scores every candidate correction of a variant
// against its siblings on fourteen independent features and writes the
// composite rank-of-ranks score.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LanguageMachines/ticcltools/alphabet"
	"github.com/LanguageMachines/ticcltools/internal/ticclerr"
	"github.com/LanguageMachines/ticcltools/internal/ticclio"
	"github.com/LanguageMachines/ticcltools/internal/ticclrun"
	"github.com/LanguageMachines/ticcltools/ldcalc"
	"github.com/LanguageMachines/ticcltools/rank"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// featureNames maps the --skip flag's column names to rank.Feature
// values.
var featureNames = map[string]rank.Feature{
	"f2len":        rank.FeatF2Len,
	"freq":         rank.FeatFreq,
	"ld":           rank.FeatLD,
	"cls":          rank.FeatCls,
	"canon":        rank.FeatCanon,
	"fl":           rank.FeatFL,
	"ll":           rank.FeatLL,
	"khc":          rank.FeatKHC,
	"pairs1":       rank.FeatPairs1,
	"pairs2":       rank.FeatPairs2,
	"median":       rank.FeatMedian,
	"variantcount": rank.FeatVariantCount,
	"cosine":       rank.FeatCosine,
	"ngram":        rank.FeatNgram,
}

func newRootCmd() *cobra.Command {
	var (
		ldcalcPath      string
		confusionsPath  string
		alphabetPath    string
		outputPath      string
		clip            int
		artifreq1       uint64
		artifreq2       uint64
		skip            []string
		cosineThreshold float64
		alphaClip       int
	)

	cmd := &cobra.Command{
		Use:   "ticcl-rank",
		Short: "Rank LD-records into per-variant candidate scores",
	}
	cf := ticclrun.AddCommonFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		log := ticclrun.NewLogger(cf.Verbose)

		if ldcalcPath == "" {
			return fmt.Errorf("--ldcalc is required")
		}
		if outputPath == "" {
			outputPath = ldcalcPath + ".ranked"
		}

		in, err := ticclio.Open(ldcalcPath)
		if err != nil {
			return err
		}
		records, err := readLDRecords(in)
		in.Close()
		if err != nil {
			return err
		}
		log.Infof("loaded %d LD-records", len(records))

		stats := rank.ComputeGlobalStats(records)

		var alpha *alphabet.Alphabet
		if alphabetPath != "" {
			af, err := ticclio.Open(alphabetPath)
			if err != nil {
				return err
			}
			alpha, err = alphabet.FillAlphabet(af, alphaClip)
			af.Close()
			if err != nil {
				return err
			}
		}
		if confusionsPath != "" {
			if alpha == nil {
				return fmt.Errorf("--alphabet is required when --confusions is given")
			}
			cf2, err := ticclio.Open(confusionsPath)
			if err != nil {
				return err
			}
			err = rank.ComputePairs2(cf2, alpha, stats)
			cf2.Close()
			if err != nil {
				return err
			}
		}

		skipSet, err := parseSkip(skip)
		if err != nil {
			return err
		}
		cfg := rank.Config{
			Clip:            clip,
			ArtiFreqF1:      artifreq1,
			ArtiFreqF2:      artifreq2,
			Skip:            skipSet,
			CosineThreshold: cosineThreshold,
		}

		byVariant := rank.Rank(records, stats, cfg)
		variants := make([]string, 0, len(byVariant))
		for v := range byVariant {
			variants = append(variants, v)
		}
		sort.Strings(variants)
		log.Infof("ranked %d variants", len(variants))

		out, err := ticclio.Create(outputPath)
		if err != nil {
			return err
		}
		// With one candidate per variant the output feeds the chain stage,
		// which wants candidate frequency descending instead of the
		// per-variant grouping.
		if clip == 1 {
			err = rank.WriteChainInput(out, rank.ChainOrder(byVariant))
		} else {
			err = rank.WriteRanked(out, variants, byVariant)
		}
		if err != nil {
			out.Close()
			return err
		}
		return out.Close()
	}

	flags := cmd.Flags()
	flags.StringVar(&ldcalcPath, "ldcalc", "", "input .ldcalc file (required)")
	flags.StringVar(&confusionsPath, "confusions", "", "input .charconfus file, for the pairs2 feature")
	flags.StringVar(&alphabetPath, "alphabet", "", "input .lc.chars alphabet file (required with --confusions)")
	flags.StringVar(&outputPath, "output", "", "output .ranked path (default <ldcalc>.ranked)")
	flags.IntVar(&clip, "clip", 0, "keep at most this many candidates per variant (0 = unlimited)")
	flags.Uint64Var(&artifreq1, "artifreq1", 0, "artificial frequency subtracted from the reduced candidate frequency")
	flags.Uint64Var(&artifreq2, "artifreq2", 0, "artificial frequency subtracted from the F2Len-deriving frequency")
	flags.StringSliceVar(&skip, "skip", nil, "feature columns to skip (comma-separated names)")
	flags.Float64Var(&cosineThreshold, "cosine-threshold", rank.DefaultCosineThreshold, "word-vector cosine similarity cutoff")
	flags.IntVar(&alphaClip, "alphabet-clip", 0, "alphabet frequency clip threshold")

	return cmd
}

func parseSkip(names []string) (map[rank.Feature]bool, error) {
	skip := make(map[rank.Feature]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		f, ok := featureNames[n]
		if !ok {
			return nil, fmt.Errorf("%w: unknown --skip feature %q", ticclerr.ErrOption, n)
		}
		skip[f] = true
	}
	return skip, nil
}

func readLDRecords(r io.Reader) ([]*ldcalc.Record, error) {
	sc := ticclio.ScanLines(r)
	var out []*ldcalc.Record
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" {
			continue
		}
		rec, err := ldcalc.ParseRecord(line)
		if err != nil {
			return nil, ticclerr.NewFormat("ldcalc", lineNo, line, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading ldcalc file: %v", ticclerr.ErrIO, err)
	}
	return out, nil
}
