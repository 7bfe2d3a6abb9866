// Package simulation runs a trace through a cache engine and reports the
// outcome of every operation.
package simulation

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/monitoring"
	"github.com/sarchlab/cachesim/tracefile"
)

// A Simulation drives one trace through one engine. Run must be called at
// most once at a time; ID, Name and Stats may be called from any goroutine.
type Simulation struct {
	id     string
	name   string
	engine *cache.Engine
	bar    *monitoring.ProgressBar

	lock     sync.Mutex
	snapshot cache.Statistics
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Name returns the name of the simulation, usually the trace it runs.
func (s *Simulation) Name() string {
	return s.name
}

// Engine returns the engine under simulation.
func (s *Simulation) Engine() *cache.Engine {
	return s.engine
}

// Stats returns the counters as of the last completed operation.
func (s *Simulation) Stats() cache.Statistics {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.snapshot
}

func (s *Simulation) publish() {
	stats := s.engine.Stats()

	s.lock.Lock()
	s.snapshot = stats
	s.lock.Unlock()
}

// Run simulates every operation read from r and writes the report to w. It
// stops at the first malformed line or write error. On success, the returned
// counters are those written in the summary.
func (s *Simulation) Run(r io.Reader, w io.Writer) (cache.Statistics, error) {
	if s.bar != nil {
		r = &countingReader{r: r, bar: s.bar}
	}

	reader := tracefile.NewReader(r)
	writer := tracefile.NewWriter(w)

	for {
		inst, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return s.engine.Stats(), err
		}

		err = s.execute(writer, inst)
		if err != nil {
			return s.engine.Stats(), err
		}

		s.publish()
	}

	stats := s.engine.Stats()

	err := writer.WriteSummary(stats)
	if err != nil {
		return stats, err
	}

	return stats, writer.Flush()
}

func (s *Simulation) execute(
	writer *tracefile.Writer,
	inst tracefile.Instruction,
) error {
	switch inst.Op {
	case tracefile.Load:
		return writer.WriteAccess(inst, s.engine.Access(inst.Address, false))
	case tracefile.Store:
		return writer.WriteAccess(inst, s.engine.Access(inst.Address, true))
	case tracefile.Modify:
		return writer.WriteModify(inst, s.engine.ModifyAccess(inst.Address))
	default:
		panic(fmt.Sprintf("unknown operation %q", byte(inst.Op)))
	}
}

type countingReader struct {
	r   io.Reader
	bar *monitoring.ProgressBar
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.bar.IncrementFinished(uint64(n))

	return n, err
}
