package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hmmm42/kmercount/internal/graphkmer"
	"github.com/hmmm42/kmercount/internal/ingest"
	"github.com/hmmm42/kmercount/internal/partition"
)

func trimCommand() *cobra.Command {
	var inPath, outPath string
	var minSize int

	cmd := &cobra.Command{
		Use:   "trim",
		Short: "Drop reads whose connected component is too small",
		Long: `trim populates the count table, then re-reads the same FASTA file,
writing through only reads whose k-mer graph component reaches --min-size
vertices (spec.md §4.3.5, the khmer trim_graphs operation).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			table, err := newTable(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := abortableContext()
			defer cancel()

			countIn, err := openFastaReader(inPath)
			if err != nil {
				return err
			}
			countProgress, countFinish := progressBar(ctx, logger, "count")
			res, err := ingest.ConsumeFasta(countIn.Reader, table, 0, 0, nil, false, cfg.CallbackPeriod(), countProgress, nil)
			countFinish()
			countIn.Close()
			if err != nil {
				return err
			}
			logger.Info().Int("total_reads", res.TotalReads).Int("consumed", res.Consumed).Msg("count pass complete")

			trimIn, err := openFastaReader(inPath)
			if err != nil {
				return err
			}
			defer trimIn.Close()
			out, err := createFastaWriter(outPath)
			if err != nil {
				return err
			}
			defer out.Close()

			g := graphkmer.New(table)
			if err := partition.TrimGraphs(g, table.Codec(), trimIn.Reader, out.Writer, minSize); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "trim complete, min component size %d\n", minSize)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inPath, "in", "i", "", "input FASTA file (required)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output FASTA file (required)")
	cmd.Flags().IntVar(&minSize, "min-size", 1, "minimum connected-component size to keep a read")
	cmd.MarkFlagRequired("in")
	cmd.MarkFlagRequired("out")

	return cmd
}
