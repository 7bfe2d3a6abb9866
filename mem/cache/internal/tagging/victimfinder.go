package tagging

import "math/rand/v2"

// A VictimFinder decides which block of a full set should be evicted.
type VictimFinder interface {
	FindVictim(set *Set) Block
}

// LRUVictimFinder evicts the least recently used block to evict
type LRUVictimFinder struct {
}

// NewLRUVictimFinder returns a newly constructed lru evictor
func NewLRUVictimFinder() *LRUVictimFinder {
	e := new(LRUVictimFinder)
	return e
}

// FindVictim returns the least recently used block in a set
func (e *LRUVictimFinder) FindVictim(set *Set) Block {
	return set.Blocks[set.LRUQueue[0]]
}

// RandomVictimFinder evicts a uniformly chosen block.
type RandomVictimFinder struct {
	rng *rand.Rand
}

// NewRandomVictimFinder returns a random evictor. Two finders created with
// the same seed choose the same sequence of ways.
func NewRandomVictimFinder(seed uint64) *RandomVictimFinder {
	return &RandomVictimFinder{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// FindVictim returns a random block in a set
func (e *RandomVictimFinder) FindVictim(set *Set) Block {
	return set.Blocks[e.rng.IntN(len(set.Blocks))]
}
