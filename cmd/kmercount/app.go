package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/cheggaaa/pb/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hmmm42/kmercount/internal/config"
	"github.com/hmmm42/kmercount/internal/counttable"
	"github.com/hmmm42/kmercount/internal/ingest"
)

// loadConfig builds a Config from the root command's persistent flags,
// falling back to environment/file/compiled-in defaults. BindPFlag wires
// viper's own precedence rule: a flag the user actually set on the command
// line (pflag's Changed) wins over environment, the config file, and the
// compiled-in default; an unset flag defers to whatever viper already
// resolved.
func loadConfig(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg := config.New()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, zerolog.Logger{}, err
		}
	}

	cfg.V().BindPFlag("k", cmd.Flags().Lookup("k"))
	cfg.V().BindPFlag("tablesize", cmd.Flags().Lookup("tablesize"))
	cfg.V().BindPFlag("logging.json", cmd.Flags().Lookup("json-logs"))

	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Logger{}, err
	}
	return cfg, cfg.CreateLogger(), nil
}

// newTable constructs the count table for cfg's (k, tablesize).
func newTable(cfg *config.Config) (*counttable.Table, error) {
	return counttable.New(cfg.K(), cfg.TableSize())
}

// abortableContext wires SIGINT into a cancelable context, the signal path
// a progress callback consults to turn "user hit Ctrl-C" into spec.md §7's
// caller-signaled abort.
func abortableContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// progressBar drives a cheggaaa/pb/v3 bar off ConsumeFasta's
// processed/kept counters, and turns SIGINT (via ctx) into an abort error
// the core propagates per spec.md §7. Total read count isn't known up
// front for a streamed FASTA file, so the bar starts indeterminate (0) and
// grows its total alongside its current count, same shape as kfilt's
// `pb.Full.Start64(totalReads)` bar but without a pre-scanned total.
func progressBar(ctx context.Context, logger zerolog.Logger, stageLabel string) (ingest.ProgressFunc, func()) {
	bar := pb.Full.Start64(0)
	bar.Set(pb.Bytes, false)
	bar.SetRefreshRate(250 * 1_000_000) // 250ms, in ns, pb's native unit

	fn := func(stage string, _ any, processed, kept uint64) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		bar.SetTotal(int64(processed))
		bar.SetCurrent(int64(processed))
		logger.Debug().Str("stage", stage).Str("label", stageLabel).Uint64("processed", processed).Uint64("kept", kept).Msg("progress")
		return nil
	}
	return fn, func() { bar.Finish() }
}
