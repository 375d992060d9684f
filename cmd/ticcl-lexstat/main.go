// Command ticcl-lexstat builds an alphabet file (character codes) and a
// character-confusion file from a wordlist, the first stage of the TICCL
// pipeline.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/LanguageMachines/ticcltools/internal/ticclio"
	"github.com/LanguageMachines/ticcltools/internal/ticclrun"
	"github.com/LanguageMachines/ticcltools/lexstat"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		corpusPath     string
		outputPath     string
		confusionsPath string
		diacPath       string
		clip           int
		depth          int
		mode           string
		separator      string
	)

	cmd := &cobra.Command{
		Use:   "ticcl-lexstat",
		Short: "Build an alphabet and character-confusion file from a wordlist",
	}
	cf := ticclrun.AddCommonFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		log := ticclrun.NewLogger(cf.Verbose)

		if corpusPath == "" {
			return fmt.Errorf("--corpus is required")
		}
		if outputPath == "" {
			outputPath = corpusPath + ".lc.chars"
		}

		var sepRune rune
		hasSep := separator != ""
		if hasSep {
			sepRune = []rune(separator)[0]
		}

		in, err := ticclio.Open(corpusPath)
		if err != nil {
			return err
		}
		defer in.Close()

		counts, err := lexstat.CountRunes(in)
		if err != nil {
			return err
		}
		_, entries := lexstat.BuildAlphabet(counts, clip, sepRune, hasSep)
		log.Infof("alphabet: %d entries (%d runes observed)", len(entries), len(counts))

		out, err := ticclio.Create(outputPath)
		if err != nil {
			return err
		}
		if err := lexstat.WriteAlphabetFile(out, entries, corpusPath); err != nil {
			out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}

		if diacPath != "" {
			dia, err := ticclio.Create(diacPath)
			if err != nil {
				return err
			}
			if err := lexstat.WriteDiacriticFile(dia, entries); err != nil {
				dia.Close()
				return err
			}
			if err := dia.Close(); err != nil {
				return err
			}
		}

		if confusionsPath != "" {
			m := lexstat.ModeFirst
			if mode == "all" {
				m = lexstat.ModeAll
			}
			sorted := sortBySym(entries)
			confusions := lexstat.GenerateConfusions(sorted, depth, m, log)
			log.Infof("generated %d confusions at depth %d", len(confusions), depth)

			conf, err := ticclio.Create(confusionsPath)
			if err != nil {
				return err
			}
			if err := lexstat.WriteConfusionFile(conf, confusions, m); err != nil {
				conf.Close()
				return err
			}
			if err := conf.Close(); err != nil {
				return err
			}
		}

		return nil
	}

	flags := cmd.Flags()
	flags.StringVar(&corpusPath, "corpus", "", "input wordlist, one word per line (required)")
	flags.StringVar(&outputPath, "output", "", "output .lc.chars path (default <corpus>.lc.chars)")
	flags.StringVar(&confusionsPath, "confusions", "", "output .charconfus path (skipped if empty)")
	flags.StringVar(&diacPath, "diac", "", "output diacritic-confusion path (skipped if empty)")
	flags.IntVar(&clip, "clip", 0, "drop characters at or below this frequency")
	flags.IntVar(&depth, "depth", 2, "confusion depth: 1, 2 or 3 characters")
	flags.StringVar(&mode, "mode", "first", `confusion pairs kept per CCV: "first" or "all"`)
	flags.StringVar(&separator, "separator", "", "n-gram part separator character, if any")

	return cmd
}

// sortBySym re-sorts the full entry set (reserved entries and separator
// included) ascending by symbol: GenerateConfusions requires that order,
// but BuildAlphabet returns entries in descending frequency order.
func sortBySym(entries []lexstat.CharCode) []lexstat.CharCode {
	out := append([]lexstat.CharCode(nil), entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].Sym < out[j].Sym })
	return out
}
