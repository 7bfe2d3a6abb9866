package tracefile

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sarchlab/cachesim/mem/cache"
)

// A Writer writes the simulation report of a trace.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a Writer that writes to w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteAccess writes the outcome of a load or a store.
func (w *Writer) WriteAccess(inst Instruction, rsp cache.Response) error {
	_, err := fmt.Fprintf(w.w, "%s %d%s\n",
		inst.Token(), rsp.Cycles, outcome(rsp))

	return err
}

// WriteModify writes the outcome of a modify. The cycles are the sum of both
// accesses.
func (w *Writer) WriteModify(inst Instruction, rsp cache.ModifyResponse) error {
	_, err := fmt.Fprintf(w.w, "%s %d%s%s\n",
		inst.Token(), rsp.Cycles, outcome(rsp.Load), outcome(rsp.Store))

	return err
}

// WriteSummary writes the final counters.
func (w *Writer) WriteSummary(stats cache.Statistics) error {
	_, err := fmt.Fprintf(w.w, "Hits: %d Misses: %d Evictions: %d\nCycles: %d\n",
		stats.Hits, stats.Misses, stats.Evictions, stats.Cycles)

	return err
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

func outcome(rsp cache.Response) string {
	s := " miss"
	if rsp.Hit {
		s = " hit"
	}

	if rsp.Eviction {
		s += " eviction"
	}

	return s
}
