package tagging

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LRUVictimFinder", func() {
	var (
		tags   TagArray
		finder *LRUVictimFinder
	)

	BeforeEach(func() {
		tags = NewTagArray(2, 4, 64)
		finder = NewLRUVictimFinder()
	})

	It("should pick the head of the LRU queue", func() {
		set := tags.GetSet(0)
		tags.Visit(set.Blocks[0])
		tags.Visit(set.Blocks[2])

		Expect(finder.FindVictim(set).WayID).To(Equal(1))
	})
})

var _ = Describe("RandomVictimFinder", func() {
	It("should stay within the set", func() {
		tags := NewTagArray(1, 8, 64)
		finder := NewRandomVictimFinder(42)

		for i := 0; i < 1000; i++ {
			way := finder.FindVictim(tags.GetSet(0)).WayID
			Expect(way).To(BeNumerically(">=", 0))
			Expect(way).To(BeNumerically("<", 8))
		}
	})

	It("should be reproducible with the same seed", func() {
		tags := NewTagArray(1, 16, 64)
		a := NewRandomVictimFinder(7)
		b := NewRandomVictimFinder(7)

		for i := 0; i < 100; i++ {
			Expect(a.FindVictim(tags.GetSet(0))).
				To(Equal(b.FindVictim(tags.GetSet(0))))
		}
	})

	It("should eventually choose every way", func() {
		tags := NewTagArray(1, 4, 64)
		finder := NewRandomVictimFinder(1)
		seen := map[int]bool{}

		for i := 0; i < 1000; i++ {
			seen[finder.FindVictim(tags.GetSet(0)).WayID] = true
		}

		Expect(seen).To(HaveLen(4))
	})
})
