package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var reportCmd = &cobra.Command{
	Use:   "report [flags] <recording.sqlite3>",
	Short: "Summarize a recording written by run --record.",
	Long: "`report` prints the configuration and counters of every run in " +
		"a recording. With --accesses it also lists the recorded accesses, " +
		"optionally narrowed by simulation, set or misses.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := reportOptionsFromFlags(cmd.Flags())
		if err != nil {
			return err
		}

		reader, err := datarecording.OpenRecording(args[0])
		if err != nil {
			return err
		}
		defer reader.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		return report(ctx, reader, opts, cmd.OutOrStdout())
	},
}

func init() {
	addReportFlags(reportCmd.Flags())
	rootCmd.AddCommand(reportCmd)
}

func addReportFlags(flags *pflag.FlagSet) {
	flags.Bool("accesses", false, "List the recorded accesses")
	flags.String("simulation", "", "Only list accesses of this simulation ID")
	flags.Int("set", -1, "Only list accesses to this set")
	flags.Bool("misses-only", false, "Only list accesses that missed")
	flags.Int("limit", 50, "Maximum number of accesses to list, 0 for all")
	flags.Int("offset", 0, "Number of matching accesses to skip")
}

type reportOptions struct {
	accesses bool
	filter   datarecording.AccessFilter
}

func reportOptionsFromFlags(flags *pflag.FlagSet) (reportOptions, error) {
	o := reportOptions{filter: datarecording.AllAccesses()}

	var err error

	if o.accesses, err = flags.GetBool("accesses"); err != nil {
		return o, err
	}

	if o.filter.Simulation, err = flags.GetString("simulation"); err != nil {
		return o, err
	}

	if o.filter.SetIndex, err = flags.GetInt("set"); err != nil {
		return o, err
	}

	if o.filter.MissesOnly, err = flags.GetBool("misses-only"); err != nil {
		return o, err
	}

	if o.filter.Limit, err = flags.GetInt("limit"); err != nil {
		return o, err
	}

	if o.filter.Offset, err = flags.GetInt("offset"); err != nil {
		return o, err
	}

	if o.filter.Limit < 0 || o.filter.Offset < 0 {
		return o, errors.New("--limit and --offset cannot be negative")
	}

	return o, nil
}

func report(
	ctx context.Context,
	reader datarecording.RecordingReader,
	opts reportOptions,
	w io.Writer,
) error {
	runs, err := reader.Runs(ctx)
	if err != nil {
		return fmt.Errorf("reading runs: %w", err)
	}

	for _, run := range runs {
		fmt.Fprintf(w,
			"%s [%s]: %d sets x %d ways x %d B, %s, %s, %d/%d cycles, seed %s\n",
			run.Trace, run.Simulation,
			run.NumSets, run.Associativity, run.BlockSize,
			run.Replacement, run.WritePolicy,
			run.CacheAccessCycles, run.MemoryAccessCycles, run.Seed)
		fmt.Fprintf(w,
			"  Hits: %d Misses: %d Evictions: %d (dirty %d) Cycles: %d\n",
			run.Hits, run.Misses, run.Evictions, run.DirtyEvictions, run.Cycles)
	}

	if !opts.accesses {
		return nil
	}

	entries, total, err := reader.Accesses(ctx, opts.filter)
	if err != nil {
		return fmt.Errorf("reading accesses: %w", err)
	}

	for _, e := range entries {
		fmt.Fprintf(w, "%s #%d %s %s set %d tag %s %s %d\n",
			e.Simulation, e.Seq, accessKind(e), e.Address,
			e.SetIndex, e.Tag, accessOutcome(e), e.Cycles)
	}

	fmt.Fprintf(w, "%d of %d matching accesses\n", len(entries), total)

	return nil
}

func accessKind(e datarecording.AccessEntry) string {
	if e.IsWrite {
		return "S"
	}

	return "L"
}

func accessOutcome(e datarecording.AccessEntry) string {
	s := "miss"
	if e.Hit {
		s = "hit"
	}

	if e.Eviction {
		s += " eviction"
	}

	if e.DirtyEviction {
		s += " dirty"
	}

	return s
}
