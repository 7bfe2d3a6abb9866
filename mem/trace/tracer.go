// Package trace provides a tracer that logs every cache access.
package trace

import (
	"log"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/sim"
)

// A tracer is a hook that writes the decoding and the outcome of each access
// to a logger.
type tracer struct {
	sim.LogHookBase
}

// NewTracer creates a new Tracer.
func NewTracer(logger *log.Logger) sim.LogHook {
	t := new(tracer)
	t.Logger = logger

	return t
}

// Func logs the access if the context carries one.
func (t *tracer) Func(ctx sim.HookCtx) {
	if ctx.Pos != cache.HookPosAccess {
		return
	}

	record, ok := ctx.Item.(cache.AccessRecord)
	if !ok {
		return
	}

	kind := "load"
	if record.IsWrite {
		kind = "store"
	}

	outcome := "miss"
	if record.Hit {
		outcome = "hit"
	}

	switch {
	case record.DirtyEviction:
		outcome += " (eviction, dirty)"
	case record.Eviction:
		outcome += " (eviction)"
	}

	t.Printf("%s set index: %d, tag: %d\n",
		kind, record.SetIndex, record.Tag)
	t.Printf("address 0x%x was a %s, %d cycles\n",
		record.Address, outcome, record.Cycles)
}
