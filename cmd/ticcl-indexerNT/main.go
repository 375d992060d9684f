// Command ticcl-indexerNT builds the word-driven index: a restricted
// search outward from a driving set of focus hashes, cheaper than the
// confusion-driven variant when the focus set is small relative to the
// whole corpus.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LanguageMachines/ticcltools/indexer"
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
		anahashPath    string
		confusionsPath string
		fociPath       string
		outputPath     string
		confstatsPath  string
		low, high      int
	)
	const unbounded = 1 << 30

	cmd := &cobra.Command{
		Use:   "ticcl-indexerNT",
		Short: "Build the word-driven anagram-hash index",
	}
	cf := ticclrun.AddCommonFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		log := ticclrun.NewLogger(cf.Verbose)

		if anahashPath == "" || confusionsPath == "" || fociPath == "" {
			return fmt.Errorf("--anahash, --confusions and --foci are all required")
		}
		if outputPath == "" {
			outputPath = anahashPath + ".indexNT"
		}

		ah, err := ticclio.Open(anahashPath)
		if err != nil {
			return err
		}
		hashSet, err := indexer.ReadAnaHashHashes(ah, low, high)
		ah.Close()
		if err != nil {
			return err
		}

		cf2, err := ticclio.Open(confusionsPath)
		if err != nil {
			return err
		}
		confSet, err := indexer.ReadConfusionHashes(cf2)
		cf2.Close()
		if err != nil {
			return err
		}

		ff, err := ticclio.Open(fociPath)
		if err != nil {
			return err
		}
		foci, err := indexer.ReadFociHashes(ff)
		ff.Close()
		if err != nil {
			return err
		}
		log.Infof("searching %d hashes outward from %d foci against %d confusion values",
			len(hashSet), len(foci), len(confSet))

		threads, err := ticclrun.ResolveThreads(cf.Threads)
		if err != nil {
			return err
		}
		pool := ticclrun.New(threads)

		idx, err := indexer.RunWordDriven(context.Background(), hashSet, confSet, foci, pool)
		if err != nil {
			return err
		}

		out, err := ticclio.Create(outputPath)
		if err != nil {
			return err
		}
		if err := indexer.WriteIndexFile(out, idx); err != nil {
			out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}

		if confstatsPath != "" {
			sf, err := ticclio.Create(confstatsPath)
			if err != nil {
				return err
			}
			if err := indexer.WriteConfStatsFile(sf, idx); err != nil {
				sf.Close()
				return err
			}
			if err := sf.Close(); err != nil {
				return err
			}
		}

		return nil
	}

	flags := cmd.Flags()
	flags.StringVar(&anahashPath, "anahash", "", "input .anahash file (required)")
	flags.StringVar(&confusionsPath, "confusions", "", "input .charconfus file (required)")
	flags.StringVar(&fociPath, "foci", "", "input .corpusfoci driving set (required)")
	flags.StringVar(&outputPath, "output", "", "output .indexNT path (default <anahash>.indexNT)")
	flags.StringVar(&confstatsPath, "confstats", "", "output confusion-value stats path, if any")
	flags.IntVar(&low, "low", 0, "minimum word length (runes) kept from --anahash")
	flags.IntVar(&high, "high", unbounded, "maximum word length (runes) kept from --anahash")

	return cmd
}
