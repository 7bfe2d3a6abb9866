package cache

import "math/rand/v2"

// Builder can build cache engines.
type Builder struct {
	numSets            uint32
	blockSize          uint32
	associativity      uint32
	replacementPolicy  ReplacementPolicy
	writePolicy        WritePolicy
	cacheAccessCycles  uint32
	memoryAccessCycles uint32
	seed               uint64
	seeded             bool
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		numSets:            1024,
		blockSize:          32,
		associativity:      2,
		replacementPolicy:  LRU,
		writePolicy:        WriteBack,
		cacheAccessCycles:  1,
		memoryAccessCycles: 100,
	}
}

// WithNumSets sets the number of sets. It must be a power of two.
func (b Builder) WithNumSets(numSets uint32) Builder {
	b.numSets = numSets
	return b
}

// WithBlockSize sets the block size in bytes. It must be a power of two.
func (b Builder) WithBlockSize(blockSize uint32) Builder {
	b.blockSize = blockSize
	return b
}

// WithAssociativity sets the number of ways per set.
func (b Builder) WithAssociativity(associativity uint32) Builder {
	b.associativity = associativity
	return b
}

// WithReplacementPolicy sets the replacement policy.
func (b Builder) WithReplacementPolicy(p ReplacementPolicy) Builder {
	b.replacementPolicy = p
	return b
}

// WithWritePolicy sets the write policy.
func (b Builder) WithWritePolicy(p WritePolicy) Builder {
	b.writePolicy = p
	return b
}

// WithCacheAccessCycles sets the latency of a cache access.
func (b Builder) WithCacheAccessCycles(cycles uint32) Builder {
	b.cacheAccessCycles = cycles
	return b
}

// WithMemoryAccessCycles sets the latency of a backing-store access.
func (b Builder) WithMemoryAccessCycles(cycles uint32) Builder {
	b.memoryAccessCycles = cycles
	return b
}

// WithSeed fixes the seed of the random replacement policy. Without a seed,
// Build draws one, which is reported by Config().Seed.
func (b Builder) WithSeed(seed uint64) Builder {
	b.seed = seed
	b.seeded = true

	return b
}

// Config returns the configuration the builder would build.
func (b Builder) Config() Config {
	return Config{
		NumSets:            b.numSets,
		BlockSize:          b.blockSize,
		Associativity:      b.associativity,
		ReplacementPolicy:  b.replacementPolicy,
		WritePolicy:        b.writePolicy,
		CacheAccessCycles:  b.cacheAccessCycles,
		MemoryAccessCycles: b.memoryAccessCycles,
		Seed:               b.seed,
	}
}

// Build builds a cache engine.
func (b Builder) Build() (*Engine, error) {
	if !b.seeded {
		b = b.WithSeed(rand.Uint64())
	}

	return NewEngine(b.Config())
}
