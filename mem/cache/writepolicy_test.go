package cache

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Cycle cost", func() {
	const c, m = 3, 50

	cfg := func(p WritePolicy) Config {
		return Config{
			WritePolicy:        p,
			CacheAccessCycles:  c,
			MemoryAccessCycles: m,
		}
	}

	DescribeTable("cycles per outcome",
		func(p WritePolicy, isWrite bool, rsp Response, expected int) {
			s := newWriteStrategy(cfg(p))

			Expect(s.cycles(isWrite, rsp)).To(Equal(uint64(expected)))
		},
		Entry("WT load hit", WriteThrough, false, Response{Hit: true}, c),
		Entry("WB load hit", WriteBack, false, Response{Hit: true}, c),
		Entry("WT load miss", WriteThrough, false, Response{}, c+m),
		Entry("WB load miss", WriteBack, false, Response{}, c+m),
		Entry("WB load miss with eviction", WriteBack, false,
			Response{Eviction: true}, c+m),
		Entry("WB load miss with dirty eviction", WriteBack, false,
			Response{Eviction: true, DirtyEviction: true}, c+3*m),
		Entry("WT store hit", WriteThrough, true, Response{Hit: true}, c+m),
		Entry("WT store miss", WriteThrough, true, Response{}, 2*c+2*m),
		Entry("WT store miss with eviction", WriteThrough, true,
			Response{Eviction: true}, 2*c+2*m),
		Entry("WB store hit", WriteBack, true, Response{Hit: true}, c),
		Entry("WB store miss", WriteBack, true, Response{}, c),
		Entry("WB store miss with clean eviction", WriteBack, true,
			Response{Eviction: true}, c),
		Entry("WB store miss with dirty eviction", WriteBack, true,
			Response{Eviction: true, DirtyEviction: true}, 2*c+2*m),
	)

	It("should only dirty blocks under write-back", func() {
		Expect(newWriteStrategy(cfg(WriteBack)).dirtyOnWrite()).To(BeTrue())
		Expect(newWriteStrategy(cfg(WriteThrough)).dirtyOnWrite()).To(BeFalse())
	})

	It("should panic on unknown policies", func() {
		Expect(func() { newWriteStrategy(cfg(WritePolicy(7))) }).To(Panic())
	})
})
