package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hmmm42/kmercount/internal/graphkmer"
	"github.com/hmmm42/kmercount/internal/ingest"
	"github.com/hmmm42/kmercount/internal/partition"
)

func resumeCommand() *cobra.Command {
	var inPath, outPath string
	var checkpointMapIn, checkpointSurrenderIn string
	var checkpointMapOut, checkpointSurrenderOut string

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Continue a truncated partitioning run from a saved checkpoint",
		Long: `resume reloads a partition map and surrender set saved by a prior
"partition" run (spec.md §6's checkpoint/restart support), re-ingests a
FASTA stream to repopulate the count table, then continues truncated
partitioning over that same stream before re-emitting the partitioned
output.`,
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

			g := graphkmer.New(table)
			engine := partition.New(table, g)
			engine.AllTagDepth = cfg.PartitionAllTagDepth()
			engine.MaxTagExamined = cfg.PartitionMaxTagExamined()

			mapIn, err := openCheckpointReader(checkpointMapIn)
			if err != nil {
				return err
			}
			loadErr := engine.LoadMap(mapIn)
			mapIn.Close()
			if loadErr != nil {
				return loadErr
			}

			if checkpointSurrenderIn != "" {
				surrenderIn, err := openCheckpointReader(checkpointSurrenderIn)
				if err != nil {
					return err
				}
				loadErr := engine.LoadSurrender(surrenderIn)
				surrenderIn.Close()
				if loadErr != nil {
					return loadErr
				}
			}
			logger.Info().Int("tags", engine.TagCount()).Int("surrendered", engine.SurrenderCount()).Msg("checkpoint reloaded")

			partIn, err := openFastaReader(inPath)
			if err != nil {
				return err
			}
			progress, finish := progressBar(ctx, logger, "resume")
			defer finish()

			processed := 0
			for !partIn.Reader.IsComplete() {
				rec, ok, err := partIn.Reader.Next()
				if err != nil {
					partIn.Close()
					return err
				}
				if !ok {
					break
				}
				if _, err := engine.PartitionRead(rec.Seq); err != nil {
					continue
				}
				processed++
				if processed%cfg.CallbackPeriod() == 0 {
					if err := progress("resume", nil, uint64(processed), uint64(engine.TagCount())); err != nil {
						partIn.Close()
						return err
					}
				}
			}
			partIn.Close()

			out, err := createFastaWriter(outPath)
			if err != nil {
				return err
			}
			defer out.Close()
			emitIn, err := openFastaReader(inPath)
			if err != nil {
				return err
			}
			defer emitIn.Close()

			nPartitions, err := engine.OutputPartitionedFile(emitIn.Reader, out.Writer)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "partitions: %d, tags: %d, surrendered: %d\n", nPartitions, engine.TagCount(), engine.SurrenderCount())

			if checkpointMapOut != "" {
				mapOut, err := createCheckpointWriter(checkpointMapOut)
				if err != nil {
					return err
				}
				defer mapOut.Close()
				if err := engine.SaveMap(mapOut); err != nil {
					return err
				}
			}
			if checkpointSurrenderOut != "" {
				surrenderOut, err := createCheckpointWriter(checkpointSurrenderOut)
				if err != nil {
					return err
				}
				defer surrenderOut.Close()
				if err := engine.SaveSurrender(surrenderOut); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inPath, "in", "i", "", "input FASTA file (required)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output partitioned FASTA file (required)")
	cmd.Flags().StringVar(&checkpointMapIn, "checkpoint-map", "", "partition map checkpoint to reload (required)")
	cmd.Flags().StringVar(&checkpointSurrenderIn, "checkpoint-surrender", "", "surrender-set checkpoint to reload")
	cmd.Flags().StringVar(&checkpointMapOut, "checkpoint-map-out", "", "save the continued partition map to this path")
	cmd.Flags().StringVar(&checkpointSurrenderOut, "checkpoint-surrender-out", "", "save the continued surrender set to this path")
	cmd.MarkFlagRequired("in")
	cmd.MarkFlagRequired("out")
	cmd.MarkFlagRequired("checkpoint-map")

	return cmd
}
