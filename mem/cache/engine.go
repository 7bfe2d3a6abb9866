// Package cache simulates a single-level, set-associative data cache.
package cache

import (
	"fmt"

	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
	"github.com/sarchlab/cachesim/sim"
)

// HookPosAccess marks the completion of one cache access. The hook item is an
// AccessRecord.
var HookPosAccess = &sim.HookPos{Name: "CacheAccess"}

// Response is the outcome of one cache access.
type Response struct {
	Hit           bool
	Eviction      bool
	DirtyEviction bool
	Cycles        uint64
}

// ModifyResponse is the outcome of a load followed by a store to the same
// address.
type ModifyResponse struct {
	Load   Response
	Store  Response
	Cycles uint64
}

// AccessRecord describes an access after it completed.
type AccessRecord struct {
	Address  uint64
	IsWrite  bool
	Tag      uint64
	SetIndex int
	Response
}

// Statistics are the counters accumulated over a run.
type Statistics struct {
	Reads          uint64
	Writes         uint64
	Hits           uint64
	Misses         uint64
	Evictions      uint64
	DirtyEvictions uint64
	Cycles         uint64
}

// Accesses returns the number of load and store sub-accesses performed.
func (s Statistics) Accesses() uint64 {
	return s.Hits + s.Misses
}

// An Engine is a cache under simulation. An Engine is not safe for concurrent
// use.
type Engine struct {
	*sim.HookableBase

	config       Config
	tags         tagging.TagArray
	victimFinder tagging.VictimFinder
	write        writeStrategy
	stats        Statistics
}

// NewEngine creates an engine with every line invalid and every counter zero.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var victimFinder tagging.VictimFinder

	switch cfg.ReplacementPolicy {
	case LRU:
		victimFinder = tagging.NewLRUVictimFinder()
	case Random:
		victimFinder = tagging.NewRandomVictimFinder(cfg.Seed)
	}

	return newEngine(cfg, victimFinder), nil
}

func newEngine(cfg Config, victimFinder tagging.VictimFinder) *Engine {
	return &Engine{
		HookableBase: sim.NewHookableBase(),
		config:       cfg,
		tags: tagging.NewTagArray(
			int(cfg.NumSets),
			int(cfg.Associativity),
			int(cfg.BlockSize),
		),
		victimFinder: victimFinder,
		write:        newWriteStrategy(cfg),
	}
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config {
	return e.config
}

// Stats returns a copy of the counters.
func (e *Engine) Stats() Statistics {
	return e.stats
}

// Access performs a load or a store to addr.
func (e *Engine) Access(addr uint64, isWrite bool) Response {
	info := e.tags.Decode(addr)
	rsp := Response{}

	block, hit := e.tags.Lookup(info)
	if hit {
		rsp.Hit = true

		if isWrite && e.write.dirtyOnWrite() {
			block.IsDirty = true
			e.tags.Update(block)
		}

		e.tags.Visit(block)
	} else {
		rsp.Eviction, rsp.DirtyEviction = e.fill(info, isWrite)
	}

	rsp.Cycles = e.write.cycles(isWrite, rsp)
	e.count(isWrite, rsp)

	e.InvokeHook(sim.HookCtx{
		Domain: e,
		Pos:    HookPosAccess,
		Item: AccessRecord{
			Address:  addr,
			IsWrite:  isWrite,
			Tag:      info.Tag,
			SetIndex: info.SetIndex,
			Response: rsp,
		},
	})

	return rsp
}

// fill installs the tag into the set, evicting a victim if the set is full.
func (e *Engine) fill(
	info tagging.AddressInfo,
	isWrite bool,
) (eviction, dirtyEviction bool) {
	set := e.tags.GetSet(info.SetIndex)

	block, found := set.FirstInvalid()
	if !found {
		block = e.victimFinder.FindVictim(set)
		e.mustBeInSet(block, info.SetIndex)

		eviction = true
		dirtyEviction = block.IsDirty
	}

	block.IsValid = true
	block.Tag = info.Tag
	block.IsDirty = isWrite && e.write.dirtyOnWrite()

	e.tags.Update(block)
	e.tags.Visit(block)

	return eviction, dirtyEviction
}

func (e *Engine) mustBeInSet(block tagging.Block, setID int) {
	if block.SetID != setID ||
		block.WayID < 0 || block.WayID >= int(e.config.Associativity) {
		panic(fmt.Sprintf(
			"victim (set %d, way %d) is not a way of set %d",
			block.SetID, block.WayID, setID))
	}
}

func (e *Engine) count(isWrite bool, rsp Response) {
	if isWrite {
		e.stats.Writes++
	} else {
		e.stats.Reads++
	}

	if rsp.Hit {
		e.stats.Hits++
	} else {
		e.stats.Misses++
	}

	if rsp.Eviction {
		e.stats.Evictions++
	}

	if rsp.DirtyEviction {
		e.stats.DirtyEvictions++
	}

	e.stats.Cycles += rsp.Cycles
}

// ModifyAccess loads and then stores addr. The two accesses are independent,
// so a load that misses leaves the block in place for the store to hit.
func (e *Engine) ModifyAccess(addr uint64) ModifyResponse {
	load := e.Access(addr, false)
	store := e.Access(addr, true)

	return ModifyResponse{
		Load:   load,
		Store:  store,
		Cycles: load.Cycles + store.Cycles,
	}
}
