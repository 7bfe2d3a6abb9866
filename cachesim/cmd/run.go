package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/browser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/metrics/prom"
	"github.com/sarchlab/cachesim/monitoring"
	"github.com/sarchlab/cachesim/simulation"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] <trace>...",
	Short: "Simulate the cache over one or more traces.",
	Long: "`run` writes a report next to each trace, one line per " +
		"operation followed by the hit, miss, eviction and cycle totals.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := optionsFromFlags(cmd.Flags())
		if err != nil {
			return err
		}

		r, err := newRunner(opts, cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		return r.run(cmd.Context(), args)
	},
}

func init() {
	addRunFlags(runCmd.Flags())
	rootCmd.AddCommand(runCmd)
}

// A runner simulates a batch of traces with the same cache configuration.
type runner struct {
	opts    runOptions
	builder cache.Builder

	stderr   io.Writer
	stderrMu sync.Mutex
	monitor  *monitoring.Monitor
	registry *prometheus.Registry
}

func newRunner(opts runOptions, stderr io.Writer) (*runner, error) {
	if opts.jobs < 1 {
		return nil, fmt.Errorf("--jobs must be at least 1, got %d", opts.jobs)
	}

	b, err := opts.builder()
	if err != nil {
		return nil, err
	}

	r := &runner{
		opts:    opts,
		builder: b,
		stderr:  stderr,
	}

	if opts.metricsFile != "" {
		r.registry = prometheus.NewRegistry()
	}

	return r, nil
}

func (r *runner) run(ctx context.Context, traces []string) error {
	if r.opts.output != "" && len(traces) != 1 {
		return errors.New("--output requires exactly one trace")
	}

	err := r.tracesMustNotOverlap(traces)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	r.printf("cache: %s\n", describe(r.builder.Config()))

	if r.opts.monitor {
		r.startMonitor()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.jobs)

	for _, t := range traces {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			return r.runTrace(t)
		})
	}

	err = g.Wait()
	if err != nil {
		return err
	}

	if r.registry != nil {
		err = prom.WriteToTextfile(r.opts.metricsFile, r.registry)
		if err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}

		r.printf("metrics written to %s\n", r.opts.metricsFile)
	}

	return nil
}

// tracesMustNotOverlap rejects a batch where two traces are the same file or
// where a report would overwrite a trace.
func (r *runner) tracesMustNotOverlap(traces []string) error {
	inputs := make(map[string]string, len(traces))

	for _, t := range traces {
		abs, err := filepath.Abs(t)
		if err != nil {
			return err
		}

		if prev, ok := inputs[abs]; ok {
			return fmt.Errorf("trace %s is given more than once (as %s)", t, prev)
		}

		inputs[abs] = t
	}

	for _, t := range traces {
		out, err := filepath.Abs(r.opts.outputPath(t))
		if err != nil {
			return err
		}

		if in, ok := inputs[out]; ok {
			return fmt.Errorf("report of %s would overwrite trace %s", t, in)
		}
	}

	return nil
}

func (r *runner) startMonitor() {
	monitor := monitoring.NewMonitor().WithPortNumber(r.opts.monitorPort)

	url, err := monitor.StartServer()
	if err != nil {
		r.printf("running without monitor: %v\n", err)
		return
	}

	r.monitor = monitor

	if r.opts.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			r.printf("cannot open browser: %v\n", err)
		}
	}
}

func (r *runner) runTrace(tracePath string) error {
	engine, err := r.builder.Build()
	if err != nil {
		return err
	}

	in, err := os.Open(tracePath)
	if err != nil {
		return err
	}
	defer in.Close()

	outPath := r.opts.outputPath(tracePath)

	err = outputMustNotBeInput(in, outPath)
	if err != nil {
		return err
	}

	simBuilder := simulation.MakeBuilder().
		WithEngine(engine).
		WithName(tracePath)

	var bar *monitoring.ProgressBar
	if r.monitor != nil {
		info, err := in.Stat()
		if err != nil {
			return err
		}

		bar = r.monitor.CreateProgressBar(tracePath, uint64(info.Size()))
		defer r.monitor.CompleteProgressBar(bar)

		simBuilder = simBuilder.WithProgressBar(bar)
	}

	s := simBuilder.Build()
	if r.monitor != nil {
		r.monitor.RegisterSimulation(s)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}

	recorder := r.attachHooks(engine, s.ID(), tracePath)
	if recorder != nil {
		defer recorder.Close()
	}

	stats, err := s.Run(in, out)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("%s: %w", tracePath, err)
	}

	if recorder != nil {
		datarecording.RecordRun(recorder, s.ID(), tracePath,
			engine.Config(), stats)

		if err := recorder.Close(); err != nil {
			return fmt.Errorf("%s: closing recording: %w", tracePath, err)
		}
	}

	r.printf("%s: Hits: %d Misses: %d Evictions: %d Cycles: %d (seed %d) -> %s\n",
		tracePath, stats.Hits, stats.Misses, stats.Evictions, stats.Cycles,
		engine.Config().Seed, outPath)

	return nil
}

// outputMustNotBeInput rejects an output path that names the open trace, for
// example through a link.
func outputMustNotBeInput(in *os.File, outPath string) error {
	outInfo, err := os.Stat(outPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return err
	}

	inInfo, err := in.Stat()
	if err != nil {
		return err
	}

	if os.SameFile(inInfo, outInfo) {
		return fmt.Errorf("report %s would overwrite trace %s",
			outPath, in.Name())
	}

	return nil
}

// attachHooks connects the optional observers to the engine. It returns the
// recorder if accesses are recorded.
func (r *runner) attachHooks(
	engine *cache.Engine,
	simID, tracePath string,
) datarecording.DataRecorder {
	if r.opts.verbose {
		logger := log.New(r.stderr, tracePath+": ", 0)
		engine.AcceptHook(trace.NewTracer(logger))
	}

	if r.registry != nil {
		engine.AcceptHook(prom.New(r.registry, "cachesim", "",
			prometheus.Labels{"trace": tracePath}))
	}

	if !r.opts.record {
		return nil
	}

	recorder := datarecording.New(tracePath + "." + simID)
	engine.AcceptHook(datarecording.NewAccessRecorder(recorder, simID))

	r.printf("%s: recording accesses to %s.%s.sqlite3\n",
		tracePath, tracePath, simID)

	return recorder
}

func (r *runner) printf(format string, args ...any) {
	r.stderrMu.Lock()
	defer r.stderrMu.Unlock()

	fmt.Fprintf(r.stderr, format, args...)
}

func describe(cfg cache.Config) string {
	return fmt.Sprintf(
		"%d sets x %d ways x %d B (%d B), %s, %s, %d/%d cycles",
		cfg.NumSets, cfg.Associativity, cfg.BlockSize, cfg.TotalSize(),
		cfg.ReplacementPolicy, cfg.WritePolicy,
		cfg.CacheAccessCycles, cfg.MemoryAccessCycles)
}
