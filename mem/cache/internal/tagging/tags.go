// Package tagging maintains the tag array of a set-associative cache.
package tagging

import (
	"fmt"
	"math/bits"
)

// TagArray stores the blocks of a cache, organized as sets of ways.
type TagArray interface {
	Decode(addr uint64) AddressInfo
	Lookup(info AddressInfo) (Block, bool)
	GetSet(setID int) *Set
	Update(block Block)
	Visit(block Block)
	NumSets() int
	NumWays() int
	Reset()
}

// AddressInfo is the tag and the set index that an address maps to.
type AddressInfo struct {
	Tag      uint64
	SetIndex int
}

// A Block of a cache is the information that is associated with a cache line
type Block struct {
	Tag     uint64
	WayID   int
	SetID   int
	IsValid bool
	IsDirty bool
}

// A Set is a list of blocks where a certain piece memory can be stored at.
// LRUQueue holds way IDs ordered from the least to the most recently used.
type Set struct {
	Blocks   []Block
	LRUQueue []int
}

// FirstInvalid returns the lowest-numbered invalid block of the set.
func (s *Set) FirstInvalid() (Block, bool) {
	for _, block := range s.Blocks {
		if !block.IsValid {
			return block, true
		}
	}

	return Block{}, false
}

func (s *Set) visit(wayID int) {
	q := s.LRUQueue
	for i, w := range q {
		if w == wayID {
			copy(q[i:], q[i+1:])
			q[len(q)-1] = wayID

			return
		}
	}

	panic(fmt.Sprintf("way %d is not in the LRU queue", wayID))
}

type tagArrayImpl struct {
	numSets    int
	numWays    int
	offsetBits uint
	indexBits  uint
	indexMask  uint64
	sets       []Set
}

// NewTagArray creates a tag array with all blocks invalid. Both numSets and
// blockSize must be powers of two.
func NewTagArray(numSets, numWays, blockSize int) TagArray {
	mustBePowerOfTwo("number of sets", numSets)
	mustBePowerOfTwo("block size", blockSize)

	if numWays < 1 {
		panic(fmt.Sprintf("number of ways must be at least 1, got %d", numWays))
	}

	t := &tagArrayImpl{
		numSets:    numSets,
		numWays:    numWays,
		offsetBits: uint(bits.TrailingZeros64(uint64(blockSize))),
		indexBits:  uint(bits.TrailingZeros64(uint64(numSets))),
		indexMask:  uint64(numSets) - 1,
	}

	t.Reset()

	return t
}

func mustBePowerOfTwo(what string, n int) {
	if n <= 0 || n&(n-1) != 0 {
		panic(fmt.Sprintf("%s must be a power of two, got %d", what, n))
	}
}

func (t *tagArrayImpl) NumSets() int {
	return t.numSets
}

func (t *tagArrayImpl) NumWays() int {
	return t.numWays
}

// Decode splits an address into its tag and set index. The index mask is
// derived from the number of sets, so the set index is always in range.
func (t *tagArrayImpl) Decode(addr uint64) AddressInfo {
	return AddressInfo{
		Tag:      addr >> (t.offsetBits + t.indexBits),
		SetIndex: int((addr >> t.offsetBits) & t.indexMask),
	}
}

// GetSet returns the set with the given index.
func (t *tagArrayImpl) GetSet(setID int) *Set {
	if setID < 0 || setID >= t.numSets {
		panic(fmt.Sprintf("set %d out of range [0, %d)", setID, t.numSets))
	}

	return &t.sets[setID]
}

// Lookup finds the valid block that holds the tag in the decoded set.
func (t *tagArrayImpl) Lookup(info AddressInfo) (Block, bool) {
	set := t.GetSet(info.SetIndex)
	for _, block := range set.Blocks {
		if block.IsValid && block.Tag == info.Tag {
			return block, true
		}
	}

	return Block{}, false
}

// Update updates the block information
func (t *tagArrayImpl) Update(block Block) {
	set := t.GetSet(block.SetID)
	if block.WayID < 0 || block.WayID >= t.numWays {
		panic(fmt.Sprintf("way %d out of range [0, %d)", block.WayID, t.numWays))
	}

	set.Blocks[block.WayID] = block
}

// Visit moves the block to the end of the LRUQueue
func (t *tagArrayImpl) Visit(block Block) {
	t.GetSet(block.SetID).visit(block.WayID)
}

// Reset will mark all the blocks in the directory invalid
func (t *tagArrayImpl) Reset() {
	t.sets = make([]Set, t.numSets)
	for i := 0; i < t.numSets; i++ {
		blocks := make([]Block, t.numWays)
		queue := make([]int, t.numWays)

		for j := 0; j < t.numWays; j++ {
			blocks[j] = Block{SetID: i, WayID: j}
			queue[j] = j
		}

		t.sets[i] = Set{Blocks: blocks, LRUQueue: queue}
	}
}
