package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hmmm42/kmercount/internal/ingest"
)

func countCommand() *cobra.Command {
	var inPath string
	var maskOutPath string

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Populate the count table from a FASTA read stream",
		Long: `count streams a FASTA file through consume_fasta (spec.md §4.4), folding
every valid read's k-mers into a fresh count table and reporting the total
number of reads and the number of k-mer increments folded into the table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			table, err := newTable(cfg)
			if err != nil {
				return err
			}

			in, err := openFastaReader(inPath)
			if err != nil {
				return err
			}
			defer in.Close()

			ctx, cancel := abortableContext()
			defer cancel()
			progress, finish := progressBar(ctx, logger, "count")
			defer finish()

			res, err := ingest.ConsumeFasta(in.Reader, table, 0, 0, nil, maskOutPath != "", cfg.CallbackPeriod(), progress, nil)
			if err != nil {
				return err
			}

			logger.Info().
				Int("total_reads", res.TotalReads).
				Int("consumed", res.Consumed).
				Msg("count complete")
			fmt.Fprintf(cmd.OutOrStdout(), "reads: %d total, %d k-mers consumed\n", res.TotalReads, res.Consumed)

			if maskOutPath != "" && res.Mask != nil {
				if err := writeMask(maskOutPath, res.Mask); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inPath, "in", "i", "", "input FASTA file (required)")
	cmd.Flags().StringVar(&maskOutPath, "mask-out", "", "write a readmask marking rejected reads to this path")
	cmd.MarkFlagRequired("in")

	return cmd
}
