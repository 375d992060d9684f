// Command ticcl-ldcalc lifts an anagram-hash index into concrete
// variant/candidate LD-records, filtered by frequency, n-gram composition
// and Levenshtein distance.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LanguageMachines/ticcltools/alphabet"
	"github.com/LanguageMachines/ticcltools/indexer"
	"github.com/LanguageMachines/ticcltools/internal/ticclio"
	"github.com/LanguageMachines/ticcltools/internal/ticclrun"
	"github.com/LanguageMachines/ticcltools/ldcalc"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cleanPath      string
		anahashPath    string
		indexPath      string
		alphabetPath   string
		historicalPath string
		diacriticsPath string
		outputPath     string
		shortPath      string
		ambiPath       string
		alphaClip      int
		artifreq       uint64
		low, high      int
		shortLow       int
		ldValue        int
		nohld          bool
	)

	cmd := &cobra.Command{
		Use:   "ticcl-ldcalc",
		Short: "Compute LD-records from an anagram-hash index",
	}
	cf := ticclrun.AddCommonFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		log := ticclrun.NewLogger(cf.Verbose)

		if cleanPath == "" || anahashPath == "" || indexPath == "" || alphabetPath == "" {
			return fmt.Errorf("--clean, --anahash, --index and --alphabet are all required")
		}
		if outputPath == "" {
			outputPath = cleanPath + ".ldcalc"
		}

		alphaFile, err := ticclio.Open(alphabetPath)
		if err != nil {
			return err
		}
		alpha, err := alphabet.FillAlphabet(alphaFile, alphaClip)
		alphaFile.Close()
		if err != nil {
			return err
		}

		cleanFile, err := ticclio.Open(cleanPath)
		if err != nil {
			return err
		}
		freqs, err := ldcalc.BuildFreqTables(cleanFile, artifreq, low, high)
		cleanFile.Close()
		if err != nil {
			return err
		}
		log.Infof("loaded %d lexicon entries", len(freqs.Freq))

		ahFile, err := ticclio.Open(anahashPath)
		if err != nil {
			return err
		}
		hashMap, err := ldcalc.FillHashMap(ahFile, freqs.Freq)
		ahFile.Close()
		if err != nil {
			return err
		}

		idxFile, err := ticclio.Open(indexPath)
		if err != nil {
			return err
		}
		idx, err := indexer.ReadIndexFile(idxFile, log)
		idxFile.Close()
		if err != nil {
			return err
		}
		log.Infof("loaded index of %d confusion values", len(idx))

		var histSet map[uint64]struct{}
		if historicalPath != "" {
			hf, err := ticclio.Open(historicalPath)
			if err != nil {
				return err
			}
			histSet, err = ldcalc.ReadConfusionSet(hf)
			hf.Close()
			if err != nil {
				return err
			}
		}

		var diacSet map[uint64]struct{}
		if diacriticsPath != "" {
			df, err := ticclio.Open(diacriticsPath)
			if err != nil {
				return err
			}
			diacSet, err = ldcalc.ReadConfusionSet(df)
			df.Close()
			if err != nil {
				return err
			}
		}

		cfg := ldcalc.Config{
			LDValue:  ldValue,
			ArtiFreq: artifreq,
			LowLimit: low,
			HighLow:  shortLow,
			NoHLD:    nohld,
			Alphabet: alpha,
			HistSet:  histSet,
			DiacSet:  diacSet,
		}

		threads, err := ticclrun.ResolveThreads(cf.Threads)
		if err != nil {
			return err
		}
		pool := ticclrun.New(threads)

		result, err := ldcalc.Run(context.Background(), idx, hashMap, freqs, cfg, pool)
		if err != nil {
			return err
		}
		log.Infof("produced %d LD-records", len(result.Records))

		out, err := ticclio.Create(outputPath)
		if err != nil {
			return err
		}
		if err := ldcalc.WriteRecords(out, result.Records); err != nil {
			out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}

		if shortPath != "" {
			sf, err := ticclio.Create(shortPath)
			if err != nil {
				return err
			}
			if err := ldcalc.WriteShort(sf, result.Short); err != nil {
				sf.Close()
				return err
			}
			if err := sf.Close(); err != nil {
				return err
			}
		}

		if ambiPath != "" {
			af, err := ticclio.Create(ambiPath)
			if err != nil {
				return err
			}
			if err := ldcalc.WriteAmbi(af, result.Ambi); err != nil {
				af.Close()
				return err
			}
			if err := af.Close(); err != nil {
				return err
			}
		}

		return nil
	}

	flags := cmd.Flags()
	flags.StringVar(&cleanPath, "clean", "", "input validated frequency list (required)")
	flags.StringVar(&anahashPath, "anahash", "", "input .anahash file (required)")
	flags.StringVar(&indexPath, "index", "", "input .index/.indexNT file (required)")
	flags.StringVar(&alphabetPath, "alphabet", "", "input .lc.chars alphabet file (required)")
	flags.StringVar(&historicalPath, "historical", "", "input known-historical-confusion file, if any")
	flags.StringVar(&diacriticsPath, "diacritics", "", "input diacritic-confusion file, if any")
	flags.StringVar(&outputPath, "output", "", "output .ldcalc path (default <clean>.ldcalc)")
	flags.StringVar(&shortPath, "short", "", "output .short.ldcalc path, if any")
	flags.StringVar(&ambiPath, "ambi", "", "output .ldcalc.ambi path, if any")
	flags.IntVar(&alphaClip, "alphabet-clip", 0, "alphabet frequency clip threshold")
	flags.Uint64Var(&artifreq, "artifreq", 0, "artificial-frequency threshold")
	flags.IntVar(&low, "low", 0, "minimum lexicon word length (runes)")
	flags.IntVar(&high, "high", 0, "maximum lexicon word length (runes), 0 = unbounded")
	flags.IntVar(&shortLow, "shortlow", 0, "short n-gram part cutoff (defaults to --low)")
	flags.IntVar(&ldValue, "ld", 2, "maximum Levenshtein distance accepted")
	flags.BoolVar(&nohld, "nohld", false, "bypass the LD check for historical confusions")

	return cmd
}
