package cmd

import (
	"errors"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/spf13/pflag"
)

// runOptions are the resolved flags of the run command.
type runOptions struct {
	numSets            uint32
	blockSize          uint32
	associativity      uint32
	replacement        string
	writePolicy        string
	cacheAccessCycles  uint32
	memoryAccessCycles uint32
	seed               uint64
	seeded             bool

	output      string
	jobs        int
	record      bool
	metricsFile string
	monitor     bool
	monitorPort int
	openBrowser bool
	verbose     bool
}

func addRunFlags(flags *pflag.FlagSet) {
	defaults := cache.MakeBuilder().Config()

	flags.Uint32("sets", defaults.NumSets, "Number of sets, a power of two")
	flags.Uint32("block-size", defaults.BlockSize,
		"Block size in bytes, a power of two")
	flags.Uint32("assoc", defaults.Associativity, "Number of ways per set")
	flags.String("replacement", defaults.ReplacementPolicy.String(),
		"Replacement policy: lru or random")
	flags.String("write-policy", defaults.WritePolicy.String(),
		"Write policy: writethrough or writeback")
	flags.Uint32("cache-cycles", defaults.CacheAccessCycles,
		"Cycles of a cache access")
	flags.Uint32("memory-cycles", defaults.MemoryAccessCycles,
		"Cycles of a memory access")
	flags.Uint64("seed", 0,
		"Seed of the random replacement policy (drawn when not given)")

	flags.StringP("output", "o", "",
		"Report file, only with a single trace (default <trace>.out)")
	flags.IntP("jobs", "j", 1, "Number of traces simulated at once")
	flags.Bool("record", false,
		"Record every access into <trace>.<id>.sqlite3")
	flags.String("metrics-file", "",
		"Write Prometheus counters to this file when done")
	flags.Bool("monitor", false, "Serve progress over HTTP")
	flags.Int("monitor-port", 0, "Port of the monitoring server")
	flags.Bool("open-browser", false, "Open the monitor in a browser")
}

func optionsFromFlags(flags *pflag.FlagSet) (runOptions, error) {
	o := runOptions{}

	var errs []error
	collect := func(err error) {
		errs = append(errs, err)
	}

	var err error

	o.numSets, err = flags.GetUint32("sets")
	collect(err)
	o.blockSize, err = flags.GetUint32("block-size")
	collect(err)
	o.associativity, err = flags.GetUint32("assoc")
	collect(err)
	o.replacement, err = flags.GetString("replacement")
	collect(err)
	o.writePolicy, err = flags.GetString("write-policy")
	collect(err)
	o.cacheAccessCycles, err = flags.GetUint32("cache-cycles")
	collect(err)
	o.memoryAccessCycles, err = flags.GetUint32("memory-cycles")
	collect(err)
	o.seed, err = flags.GetUint64("seed")
	collect(err)
	o.seeded = flags.Changed("seed")

	o.output, err = flags.GetString("output")
	collect(err)
	o.jobs, err = flags.GetInt("jobs")
	collect(err)
	o.record, err = flags.GetBool("record")
	collect(err)
	o.metricsFile, err = flags.GetString("metrics-file")
	collect(err)
	o.monitor, err = flags.GetBool("monitor")
	collect(err)
	o.monitorPort, err = flags.GetInt("monitor-port")
	collect(err)
	o.openBrowser, err = flags.GetBool("open-browser")
	collect(err)
	o.verbose, err = flags.GetBool("verbose")
	collect(err)

	return o, errors.Join(errs...)
}

// builder turns the options into a cache builder, validating the geometry
// and the policy names.
func (o runOptions) builder() (cache.Builder, error) {
	replacement, err := cache.ParseReplacementPolicy(o.replacement)
	if err != nil {
		return cache.Builder{}, err
	}

	writePolicy, err := cache.ParseWritePolicy(o.writePolicy)
	if err != nil {
		return cache.Builder{}, err
	}

	b := cache.MakeBuilder().
		WithNumSets(o.numSets).
		WithBlockSize(o.blockSize).
		WithAssociativity(o.associativity).
		WithReplacementPolicy(replacement).
		WithWritePolicy(writePolicy).
		WithCacheAccessCycles(o.cacheAccessCycles).
		WithMemoryAccessCycles(o.memoryAccessCycles)

	if o.seeded {
		b = b.WithSeed(o.seed)
	}

	err = b.Config().Validate()
	if err != nil {
		return cache.Builder{}, err
	}

	return b, nil
}

func (o runOptions) outputPath(trace string) string {
	if o.output != "" {
		return o.output
	}

	return trace + ".out"
}
