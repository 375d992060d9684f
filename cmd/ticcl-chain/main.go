// Command ticcl-chain links ranked variant/candidate pairs into head/table
// forests, so that every variant ultimately points at one top-level
// correction.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LanguageMachines/ticcltools/alphabet"
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
		rankedPath   string
		alphabetPath string
		outputPath   string
		alphaClip    int
		caseless     bool
		nounk        bool
	)

	cmd := &cobra.Command{
		Use:   "ticcl-chain",
		Short: "Link ranked variant/candidate pairs into head/table forests",
	}
	cf := ticclrun.AddCommonFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		log := ticclrun.NewLogger(cf.Verbose)

		if rankedPath == "" {
			return fmt.Errorf("--ranked is required")
		}
		if outputPath == "" {
			outputPath = rankedPath + ".chained"
		}

		if alphabetPath == "" {
			return fmt.Errorf("--alphabet is required")
		}
		af, err := ticclio.Open(alphabetPath)
		if err != nil {
			return err
		}
		alpha, err := alphabet.FillAlphabet(af, alphaClip)
		af.Close()
		if err != nil {
			return err
		}

		in, err := ticclio.Open(rankedPath)
		if err != nil {
			return err
		}
		records, err := chain.ReadRecords(in)
		in.Close()
		if err != nil {
			return err
		}
		log.Infof("loaded %d ranked records", len(records))

		c := chain.New(caseless, nounk, alpha)
		for _, rec := range records {
			c.Add(rec)
		}
		c.FinalMerge()

		out, err := ticclio.Create(outputPath)
		if err != nil {
			return err
		}
		if err := c.Output(out); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	}

	flags := cmd.Flags()
	flags.StringVar(&rankedPath, "ranked", "", "input .ranked file (required)")
	flags.StringVar(&alphabetPath, "alphabet", "", "input .lc.chars alphabet file (required)")
	flags.StringVar(&outputPath, "output", "", "output .chained path (default <ranked>.chained)")
	flags.IntVar(&alphaClip, "alphabet-clip", 0, "alphabet frequency clip threshold")
	flags.BoolVar(&caseless, "caseless", true, "compare variant/candidate case-insensitively")
	flags.BoolVar(&nounk, "nounk", false, "reject single out-of-alphabet extra-character corrections")

	return cmd
}
