package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hmmm42/kmercount/internal/graphkmer"
	"github.com/hmmm42/kmercount/internal/ingest"
	"github.com/hmmm42/kmercount/internal/partition"
)

func partitionCommand() *cobra.Command {
	var inPath, outPath string
	var exact bool
	var allTagDepth, maxTagExamined int
	var checkpointMapPath, checkpointSurrenderPath string
	var maskInPath string

	cmd := &cobra.Command{
		Use:   "partition",
		Short: "Partition reads into connected components of the k-mer graph",
		Long: `partition builds the count table, then groups reads into equivalence
classes by tagging each read's first k-mer and walking the implicit k-mer
graph (spec.md §4.3). By default this is the truncated, budgeted walk
(partition_read); --exact switches to the unbounded whole-component walk
(partition_all's exact_partition mode) once every
read's first k-mer has been tagged.`,
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

			// Pass 1: populate the count table, optionally skipping reads a
			// prior "count --mask-out" run already found invalid.
			var mask *ingest.BitMask
			if maskInPath != "" {
				mask, err = readMask(maskInPath)
				if err != nil {
					return err
				}
			}

			countIn, err := openFastaReader(inPath)
			if err != nil {
				return err
			}
			countProgress, countFinish := progressBar(ctx, logger, "count")
			res, err := ingest.ConsumeFasta(countIn.Reader, table, 0, 0, mask, false, cfg.CallbackPeriod(), countProgress, nil)
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
			if allTagDepth > 0 {
				engine.AllTagDepth = allTagDepth
			}
			if maxTagExamined > 0 {
				engine.MaxTagExamined = maxTagExamined
			}

			// Pass 2: tag and partition.
			tagIn, err := openFastaReader(inPath)
			if err != nil {
				return err
			}
			tagProgress, tagFinish := progressBar(ctx, logger, "partition")
			defer tagFinish()

			processed := 0
			for !tagIn.Reader.IsComplete() {
				rec, ok, err := tagIn.Reader.Next()
				if err != nil {
					tagIn.Close()
					return err
				}
				if !ok {
					break
				}
				if exact {
					if _, _, err := engine.TagFirstKmer(rec.Seq); err != nil {
						continue
					}
				} else if _, err := engine.PartitionRead(rec.Seq); err != nil {
					continue
				}
				processed++
				if processed%cfg.CallbackPeriod() == 0 {
					if err := tagProgress("partition", nil, uint64(processed), uint64(engine.TagCount())); err != nil {
						tagIn.Close()
						return err
					}
				}
			}
			tagIn.Close()

			if exact {
				logger.Info().Int("tags", engine.TagCount()).Msg("tagging pass complete, running exact partition")
				engine.PartitionExact()
			}

			// Pass 3: emit the partitioned FASTA.
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
			logger.Info().Int("partitions", nPartitions).Int("surrendered", engine.SurrenderCount()).Msg("partition complete")

			if checkpointMapPath != "" {
				mapOut, err := createCheckpointWriter(checkpointMapPath)
				if err != nil {
					return err
				}
				defer mapOut.Close()
				if err := engine.SaveMap(mapOut); err != nil {
					return err
				}
			}
			if checkpointSurrenderPath != "" {
				surrenderOut, err := createCheckpointWriter(checkpointSurrenderPath)
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
	cmd.Flags().BoolVar(&exact, "exact", false, "use unbounded exact partitioning instead of the truncated per-read walk")
	cmd.Flags().IntVar(&allTagDepth, "all-tag-depth", 0, "override PARTITION_ALL_TAG_DEPTH (0 keeps the configured default)")
	cmd.Flags().IntVar(&maxTagExamined, "max-tag-examined", 0, "override PARTITION_MAX_TAG_EXAMINED (0 keeps the configured default)")
	cmd.Flags().StringVar(&checkpointMapPath, "checkpoint-map", "", "save the partition map to this path")
	cmd.Flags().StringVar(&checkpointSurrenderPath, "checkpoint-surrender", "", "save the surrender set to this path")
	cmd.Flags().StringVar(&maskInPath, "mask-in", "", "readmask from a prior 'count --mask-out' run; masked-out reads are skipped")
	cmd.MarkFlagRequired("in")
	cmd.MarkFlagRequired("out")

	return cmd
}
