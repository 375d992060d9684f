// Command ticcl-anahash hashes a word-frequency corpus into anagram-hash
// buckets and, optionally, the restricted "foci" set the word-driven
// indexer stage needs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LanguageMachines/ticcltools/alphabet"
	"github.com/LanguageMachines/ticcltools/anahash"
	"github.com/LanguageMachines/ticcltools/internal/ticclio"
	"github.com/LanguageMachines/ticcltools/internal/ticclrun"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		corpusPath     string
		alphabetPath   string
		outputPath     string
		backgroundPath string
		mergedPath     string
		fociPath       string
		clip           int
		low, high      int
		artifreq       uint64
		ngramFoci      bool
		separator      string
		list           bool
	)

	cmd := &cobra.Command{
		Use:   "ticcl-anahash",
		Short: "Hash a frequency corpus into anagram buckets",
	}
	cf := ticclrun.AddCommonFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		log := ticclrun.NewLogger(cf.Verbose)

		if corpusPath == "" || alphabetPath == "" {
			return fmt.Errorf("--corpus and --alphabet are required")
		}
		if outputPath == "" {
			outputPath = corpusPath + ".anahash"
		}

		alphaFile, err := ticclio.Open(alphabetPath)
		if err != nil {
			return err
		}
		alpha, err := alphabet.FillAlphabet(alphaFile, clip)
		alphaFile.Close()
		if err != nil {
			return err
		}

		in, err := ticclio.Open(corpusPath)
		if err != nil {
			return err
		}
		defer in.Close()

		if list {
			if artifreq > 0 {
				return fmt.Errorf("--artifreq is not supported with --list")
			}
			if backgroundPath != "" {
				return fmt.Errorf("--background is not supported with --list")
			}
			out, err := ticclio.Create(outputPath)
			if err != nil {
				return err
			}
			if err := anahash.WriteList(out, in, alpha); err != nil {
				out.Close()
				return err
			}
			return out.Close()
		}

		corpus, err := anahash.HashCorpus(in, alpha, low, high)
		if err != nil {
			return err
		}
		log.Infof("hashed %d distinct words into %d buckets", len(corpus.Freq), len(corpus.Buckets))

		merged := make(map[string]uint64, len(corpus.Freq))
		for w, f := range corpus.Freq {
			merged[w] = f
		}
		if backgroundPath != "" {
			bg, err := ticclio.Open(backgroundPath)
			if err != nil {
				return err
			}
			err = anahash.MergeBackground(bg, alpha, corpus.Buckets, merged)
			bg.Close()
			if err != nil {
				return err
			}
			log.Infof("merged background corpus %s", backgroundPath)
		}
		if mergedPath != "" {
			mf, err := ticclio.Create(mergedPath)
			if err != nil {
				return err
			}
			if err := anahash.WriteMergedFile(mf, merged); err != nil {
				mf.Close()
				return err
			}
			if err := mf.Close(); err != nil {
				return err
			}
		}

		out, err := ticclio.Create(outputPath)
		if err != nil {
			return err
		}
		if err := anahash.WriteAnagramFile(out, corpus.Buckets); err != nil {
			out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}

		if fociPath != "" && artifreq > 0 {
			var sepRune rune = anahash.DefaultSeparator
			if separator != "" {
				sepRune = []rune(separator)[0]
			}
			foci := anahash.ComputeFoci(corpus.Freq, alpha, artifreq, sepRune, ngramFoci)
			log.Infof("computed %d foci buckets", len(foci))
			ff, err := ticclio.Create(fociPath)
			if err != nil {
				return err
			}
			if err := anahash.WriteAnagramFile(ff, foci); err != nil {
				ff.Close()
				return err
			}
			if err := ff.Close(); err != nil {
				return err
			}
		}

		return nil
	}

	flags := cmd.Flags()
	flags.StringVar(&corpusPath, "corpus", "", "input frequency list, FoLiA-stats format (required)")
	flags.StringVar(&alphabetPath, "alphabet", "", "input .lc.chars alphabet file (required)")
	flags.StringVar(&outputPath, "output", "", "output .anahash path (default <corpus>.anahash)")
	flags.StringVar(&backgroundPath, "background", "", "background frequency list to merge in, if any")
	flags.StringVar(&mergedPath, "merged", "", "output .merged path for the combined frequency table")
	flags.StringVar(&fociPath, "foci", "", "output .corpusfoci path (requires --artifreq > 0)")
	flags.IntVar(&clip, "alphabet-clip", 0, "alphabet frequency clip threshold")
	flags.IntVar(&low, "low", 0, "minimum word length (runes) kept, 0 = unbounded")
	flags.IntVar(&high, "high", 0, "maximum word length (runes) kept, 0 = unbounded")
	flags.Uint64Var(&artifreq, "artifreq", 0, "artificial-frequency threshold for foci selection")
	flags.BoolVar(&ngramFoci, "ngram-foci", false, "apply the foci test per n-gram part instead of whole words")
	flags.StringVar(&separator, "separator", "", "n-gram part separator (default '_')")
	flags.BoolVar(&list, "list", false, "stream word<TAB>hash pairs instead of building buckets")

	return cmd
}
