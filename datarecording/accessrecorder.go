package datarecording

import (
	"fmt"
	"slices"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/sim"
)

// Names of the tables written by the cache recorders.
const (
	AccessTable = "access"
	RunTable    = "run"
)

// AccessEntry is one row of the access table. Addresses and tags are stored as
// hex strings because SQLite integers are signed.
type AccessEntry struct {
	Simulation    string
	Seq           uint64
	Address       string
	IsWrite       bool
	Tag           string
	SetIndex      int
	Hit           bool
	Eviction      bool
	DirtyEviction bool
	Cycles        uint64
}

// RunEntry is one row of the run table.
type RunEntry struct {
	Simulation         string
	Trace              string
	NumSets            uint32
	BlockSize          uint32
	Associativity      uint32
	Replacement        string
	WritePolicy        string
	CacheAccessCycles  uint32
	MemoryAccessCycles uint32
	Seed               string
	Reads              uint64
	Writes             uint64
	Hits               uint64
	Misses             uint64
	Evictions          uint64
	DirtyEvictions     uint64
	Cycles             uint64
}

type accessRecorder struct {
	recorder   DataRecorder
	simulation string
	seq        uint64
}

// NewAccessRecorder returns a hook that records every cache access of a
// simulation into the access table.
func NewAccessRecorder(recorder DataRecorder, simulation string) sim.Hook {
	ensureTable(recorder, AccessTable, AccessEntry{})

	return &accessRecorder{
		recorder:   recorder,
		simulation: simulation,
	}
}

func (r *accessRecorder) Func(ctx sim.HookCtx) {
	if ctx.Pos != cache.HookPosAccess {
		return
	}

	record, ok := ctx.Item.(cache.AccessRecord)
	if !ok {
		return
	}

	r.seq++

	r.recorder.InsertData(AccessTable, AccessEntry{
		Simulation:    r.simulation,
		Seq:           r.seq,
		Address:       fmt.Sprintf("0x%x", record.Address),
		IsWrite:       record.IsWrite,
		Tag:           fmt.Sprintf("0x%x", record.Tag),
		SetIndex:      record.SetIndex,
		Hit:           record.Hit,
		Eviction:      record.Eviction,
		DirtyEviction: record.DirtyEviction,
		Cycles:        record.Cycles,
	})
}

// RecordRun writes the configuration and the final counters of a simulation
// into the run table.
func RecordRun(
	recorder DataRecorder,
	simulation, trace string,
	cfg cache.Config,
	stats cache.Statistics,
) {
	ensureTable(recorder, RunTable, RunEntry{})

	recorder.InsertData(RunTable, RunEntry{
		Simulation:         simulation,
		Trace:              trace,
		NumSets:            cfg.NumSets,
		BlockSize:          cfg.BlockSize,
		Associativity:      cfg.Associativity,
		Replacement:        cfg.ReplacementPolicy.String(),
		WritePolicy:        cfg.WritePolicy.String(),
		CacheAccessCycles:  cfg.CacheAccessCycles,
		MemoryAccessCycles: cfg.MemoryAccessCycles,
		Seed:               fmt.Sprintf("%d", cfg.Seed),
		Reads:              stats.Reads,
		Writes:             stats.Writes,
		Hits:               stats.Hits,
		Misses:             stats.Misses,
		Evictions:          stats.Evictions,
		DirtyEvictions:     stats.DirtyEvictions,
		Cycles:             stats.Cycles,
	})
}

func ensureTable(recorder DataRecorder, name string, sample any) {
	if !slices.Contains(recorder.ListTables(), name) {
		recorder.CreateTable(name, sample)
	}
}
