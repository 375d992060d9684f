// Command ticcl-indexer builds the confusion-driven index: a merge-join
// over the whole anagram-hash set against every known
// character-confusion value.
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
		Use:   "ticcl-indexer",
		Short: "Build the confusion-driven anagram-hash index",
	}
	cf := ticclrun.AddCommonFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		log := ticclrun.NewLogger(cf.Verbose)

		if anahashPath == "" || confusionsPath == "" {
			return fmt.Errorf("--anahash and --confusions are required")
		}
		if outputPath == "" {
			outputPath = anahashPath + ".index"
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
		log.Infof("indexing %d hashes against %d confusion values", len(hashSet), len(confSet))

		var fociSet map[uint64]struct{}
		if fociPath != "" {
			ff, err := ticclio.Open(fociPath)
			if err != nil {
				return err
			}
			fociHashes, err := indexer.ReadFociHashes(ff)
			ff.Close()
			if err != nil {
				return err
			}
			fociSet = make(map[uint64]struct{}, len(fociHashes))
			for _, h := range fociHashes {
				fociSet[h] = struct{}{}
			}
		}

		threads, err := ticclrun.ResolveThreads(cf.Threads)
		if err != nil {
			return err
		}
		pool := ticclrun.New(threads)

		idx, err := indexer.RunConfusionDriven(context.Background(), hashSet, confSet, fociSet, pool)
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
	flags.StringVar(&fociPath, "foci", "", "restrict pairs to those touching a focus hash, if given")
	flags.StringVar(&outputPath, "output", "", "output .index path (default <anahash>.index)")
	flags.StringVar(&confstatsPath, "confstats", "", "output confusion-value stats path, if any")
	flags.IntVar(&low, "low", 0, "minimum word length (runes) kept from --anahash")
	flags.IntVar(&high, "high", unbounded, "maximum word length (runes) kept from --anahash")

	return cmd
}
