package tagging

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Tags", func() {
	var (
		tags *tagArrayImpl
	)

	BeforeEach(func() {
		tags = NewTagArray(1024, 4, 64).(*tagArrayImpl)
	})

	It("should start with every block invalid", func() {
		for i := 0; i < tags.NumSets(); i++ {
			_, found := tags.GetSet(i).FirstInvalid()
			Expect(found).To(BeTrue())
			Expect(tags.GetSet(i).LRUQueue).To(Equal([]int{0, 1, 2, 3}))
		}
	})

	Context("when decoding addresses", func() {
		It("should split tag and set index", func() {
			info := tags.Decode(0x12345678)

			Expect(info.SetIndex).To(Equal(int((0x12345678 >> 6) & 1023)))
			Expect(info.Tag).To(Equal(uint64(0x12345678 >> 16)))
		})

		It("should decode address 0", func() {
			Expect(tags.Decode(0)).To(Equal(AddressInfo{}))
		})

		It("should keep the set index in range for small addresses", func() {
			for addr := uint64(0); addr < 1<<17; addr += 7 {
				info := tags.Decode(addr)
				Expect(info.SetIndex).To(BeNumerically("<", 1024))
				Expect(info.SetIndex).To(BeNumerically(">=", 0))
			}
		})

		It("should keep the set index in range for the largest address", func() {
			info := tags.Decode(^uint64(0))

			Expect(info.SetIndex).To(Equal(1023))
			Expect(info.Tag).To(Equal(^uint64(0) >> 16))
		})

		It("should decode a direct-mapped single-set cache", func() {
			single := NewTagArray(1, 1, 1)

			Expect(single.Decode(0xabc)).To(Equal(AddressInfo{Tag: 0xabc}))
		})
	})

	It("should lookup", func() {
		info := tags.Decode(0x100)
		tags.Update(Block{
			Tag:     info.Tag,
			SetID:   info.SetIndex,
			WayID:   2,
			IsValid: true,
		})

		block, ok := tags.Lookup(info)

		Expect(ok).To(BeTrue())
		Expect(block.WayID).To(Equal(2))
	})

	It("should return false when lookup cannot find block", func() {
		block, ok := tags.Lookup(tags.Decode(0x100))
		Expect(ok).To(BeFalse())
		Expect(block).To(BeZero())
	})

	It("should return false if block is invalid", func() {
		info := tags.Decode(0x100)
		tags.Update(Block{Tag: info.Tag, SetID: info.SetIndex, WayID: 0})

		block, ok := tags.Lookup(info)
		Expect(ok).To(BeFalse())
		Expect(block).To(BeZero())
	})

	It("should update LRU queue when visiting a block", func() {
		set := tags.GetSet(4)

		tags.Visit(set.Blocks[1])

		Expect(set.LRUQueue).To(Equal([]int{0, 2, 3, 1}))

		tags.Visit(set.Blocks[0])

		Expect(set.LRUQueue).To(Equal([]int{2, 3, 1, 0}))
	})

	It("should keep LRU queues local to their set", func() {
		tags.Visit(tags.GetSet(1).Blocks[0])

		Expect(tags.GetSet(0).LRUQueue).To(Equal([]int{0, 1, 2, 3}))
		Expect(tags.GetSet(1).LRUQueue).To(Equal([]int{1, 2, 3, 0}))
	})

	It("should find the lowest invalid block", func() {
		tags.Update(Block{SetID: 3, WayID: 0, IsValid: true})
		tags.Update(Block{SetID: 3, WayID: 2, IsValid: true})

		block, found := tags.GetSet(3).FirstInvalid()

		Expect(found).To(BeTrue())
		Expect(block.WayID).To(Equal(1))
	})

	It("should panic on out-of-range sets", func() {
		Expect(func() { tags.GetSet(1024) }).To(Panic())
		Expect(func() { tags.GetSet(-1) }).To(Panic())
	})

	It("should panic on non-power-of-two geometry", func() {
		Expect(func() { NewTagArray(3, 1, 64) }).To(Panic())
		Expect(func() { NewTagArray(4, 1, 48) }).To(Panic())
		Expect(func() { NewTagArray(4, 0, 64) }).To(Panic())
	})

	It("should reset", func() {
		tags.Update(Block{SetID: 0, WayID: 0, IsValid: true, IsDirty: true})
		tags.Visit(tags.GetSet(0).Blocks[0])

		tags.Reset()

		Expect(tags.GetSet(0).Blocks[0].IsValid).To(BeFalse())
		Expect(tags.GetSet(0).LRUQueue).To(Equal([]int{0, 1, 2, 3}))
	})
})
