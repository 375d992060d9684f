// Command ticcl-chainclean resolves the remaining ambiguity in a chained
// file: when several multi-gram variants share an unresolved part, only
// the correction that best explains that part is kept.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/LanguageMachines/ticcltools/chain"
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
		chainedPath string
		lexiconPath string
		outputPath  string
		deletedPath string
		low         int
		caseless    bool
	)

	cmd := &cobra.Command{
		Use:   "ticcl-chainclean",
		Short: "Resolve ambiguity between unigram and multigram corrections",
	}
	cf := ticclrun.AddCommonFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		log := ticclrun.NewLogger(cf.Verbose)

		if chainedPath == "" {
			return fmt.Errorf("--chained is required")
		}
		if outputPath == "" {
			outputPath = chainedPath + ".cleaned"
		}
		if deletedPath == "" {
			deletedPath = outputPath + ".deleted"
		}

		in, err := ticclio.Open(chainedPath)
		if err != nil {
			return err
		}
		edges, err := chain.ReadEdges(in)
		in.Close()
		if err != nil {
			return err
		}
		log.Infof("loaded %d chained edges", len(edges))

		validated := func(string) bool { return false }
		if lexiconPath != "" {
			lf, err := ticclio.Open(lexiconPath)
			if err != nil {
				return err
			}
			lexicon, err := readLexicon(lf)
			lf.Close()
			if err != nil {
				return err
			}
			validated = func(w string) bool {
				_, ok := lexicon[w]
				return ok
			}
		}

		kept, deleted := chain.Chainclean(edges, validated, low, caseless)
		log.Infof("kept %d edges, deleted %d", len(kept), len(deleted))

		out, err := ticclio.Create(outputPath)
		if err != nil {
			return err
		}
		if err := chain.WriteEdges(out, kept, false); err != nil {
			out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}

		df, err := ticclio.Create(deletedPath)
		if err != nil {
			return err
		}
		if err := chain.WriteEdges(df, deleted, true); err != nil {
			df.Close()
			return err
		}
		return df.Close()
	}

	flags := cmd.Flags()
	flags.StringVar(&chainedPath, "chained", "", "input .chained file (required)")
	flags.StringVar(&lexiconPath, "lexicon", "", "validated-word list, one word per line")
	flags.StringVar(&outputPath, "output", "", "output .cleaned path (default <chained>.cleaned)")
	flags.StringVar(&deletedPath, "deleted", "", "output path for deleted edges (default <output>.deleted)")
	flags.IntVar(&low, "low", 0, "minimum total n-gram character length kept")
	flags.BoolVar(&caseless, "caseless", true, "compare variant/candidate parts case-insensitively")

	return cmd
}

func readLexicon(r io.Reader) (map[string]struct{}, error) {
	sc := ticclio.ScanLines(r)
	out := make(map[string]struct{})
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		out[line] = struct{}{}
	}
	return out, sc.Err()
}
