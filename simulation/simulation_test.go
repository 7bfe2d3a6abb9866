package simulation

import (
	"bytes"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/monitoring"
	"github.com/sarchlab/cachesim/tracefile"
)

func referenceEngine() *cache.Engine {
	e, err := cache.MakeBuilder().
		WithNumSets(1024).
		WithBlockSize(32).
		WithAssociativity(2).
		WithReplacementPolicy(cache.LRU).
		WithWritePolicy(cache.WriteBack).
		WithCacheAccessCycles(1).
		WithMemoryAccessCycles(100).
		Build()
	Expect(err).NotTo(HaveOccurred())

	return e
}

var _ = Describe("Simulation", func() {
	var (
		s   *Simulation
		out *bytes.Buffer
	)

	BeforeEach(func() {
		s = MakeBuilder().
			WithEngine(referenceEngine()).
			WithName("test").
			Build()
		out = new(bytes.Buffer)
	})

	It("should require an engine", func() {
		Expect(func() { MakeBuilder().Build() }).To(Panic())
	})

	It("should fall back to the ID as the name", func() {
		s = MakeBuilder().WithEngine(referenceEngine()).Build()

		Expect(s.ID()).NotTo(BeEmpty())
		Expect(s.Name()).To(Equal(s.ID()))
	})

	It("should report each load until the set overflows", func() {
		trace := "==1== lackey\n" +
			"I  0400d7d4,8\n" +
			" L 0,1\n" +
			" L 8000,1\n" +
			" L 10000,1\n"

		stats, err := s.Run(strings.NewReader(trace), out)

		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(Equal(
			"L 0,1 101 miss\n" +
				"L 8000,1 101 miss\n" +
				"L 10000,1 101 miss eviction\n" +
				"Hits: 0 Misses: 3 Evictions: 1\n" +
				"Cycles: 303\n"))
		Expect(stats.Evictions).To(Equal(uint64(1)))
		Expect(s.Stats()).To(Equal(stats))
	})

	It("should write back a dirty victim", func() {
		trace := " S 0,1\n S 8000,1\n S 10000,1\n"

		_, err := s.Run(strings.NewReader(trace), out)

		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(Equal(
			"S 0,1 1 miss\n" +
				"S 8000,1 1 miss\n" +
				"S 10000,1 202 miss eviction\n" +
				"Hits: 0 Misses: 3 Evictions: 1\n" +
				"Cycles: 204\n"))
	})

	It("should report both halves of a modify", func() {
		_, err := s.Run(strings.NewReader(" M 0421c7f0,4\n"), out)

		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(Equal(
			"M 0421c7f0,4 102 miss hit\n" +
				"Hits: 1 Misses: 1 Evictions: 0\n" +
				"Cycles: 102\n"))
	})

	It("should write only the summary for an empty trace", func() {
		_, err := s.Run(strings.NewReader(""), out)

		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(Equal(
			"Hits: 0 Misses: 0 Evictions: 0\nCycles: 0\n"))
	})

	It("should stop at a malformed line", func() {
		trace := " L 0,1\nbogus\n L 20,1\n"

		stats, err := s.Run(strings.NewReader(trace), out)

		var lineErr *tracefile.LineError
		Expect(errors.As(err, &lineErr)).To(BeTrue())
		Expect(lineErr.Line).To(Equal(2))
		Expect(errors.Is(err, tracefile.ErrMalformedLine)).To(BeTrue())
		Expect(stats.Accesses()).To(Equal(uint64(1)))
		Expect(out.String()).NotTo(ContainSubstring("Hits:"))
	})

	It("should produce the same report for the same trace", func() {
		trace := " L 0,1\n S 8000,4\n M 10000,8\n L 0,1\n"
		again := new(bytes.Buffer)

		_, err := s.Run(strings.NewReader(trace), out)
		Expect(err).NotTo(HaveOccurred())

		s = MakeBuilder().WithEngine(referenceEngine()).Build()
		_, err = s.Run(strings.NewReader(trace), again)
		Expect(err).NotTo(HaveOccurred())

		Expect(again.String()).To(Equal(out.String()))
	})

	It("should advance the progress bar by the bytes consumed", func() {
		trace := " L 0,1\n L 20,1\n"
		bar := monitoring.NewMonitor().
			CreateProgressBar("test", uint64(len(trace)))

		s = MakeBuilder().
			WithEngine(referenceEngine()).
			WithProgressBar(bar).
			Build()

		_, err := s.Run(strings.NewReader(trace), out)
		Expect(err).NotTo(HaveOccurred())

		finished, total := bar.Progress()
		Expect(finished).To(Equal(total))
	})
})
