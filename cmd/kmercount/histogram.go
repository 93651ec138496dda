package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hmmm42/kmercount/internal/ingest"
)

func histogramCommand() *cobra.Command {
	var inPath, outPath string

	cmd := &cobra.Command{
		Use:   "histogram",
		Short: "Print the k-mer abundance histogram as TSV",
		Long: `histogram populates the count table from a FASTA stream and writes a
two-column TSV (count, number_of_k-mers_with_that_count) for every nonzero
bucket, the abundance-distribution report khmer's abundance-dist.py
produces from the same count table. Not part of CORE — a read-only
consumer of the count query API.`,
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
			progress, finish := progressBar(ctx, logger, "histogram")
			defer finish()

			res, err := ingest.ConsumeFasta(in.Reader, table, 0, 0, nil, false, cfg.CallbackPeriod(), progress, nil)
			if err != nil {
				return err
			}
			logger.Info().Int("total_reads", res.TotalReads).Int("consumed", res.Consumed).Msg("histogram ingest complete")

			w := cmd.OutOrStdout()
			if outPath != "" {
				f, err := createFile(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			dist := table.AbundanceDistribution()
			bw := bufio.NewWriter(w)
			for count, n := range dist {
				if n == 0 {
					continue
				}
				fmt.Fprintf(bw, "%d\t%d\n", count, n)
			}
			return bw.Flush()
		},
	}

	cmd.Flags().StringVarP(&inPath, "in", "i", "", "input FASTA file (required)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the histogram to this path instead of stdout")
	cmd.MarkFlagRequired("in")

	return cmd
}
