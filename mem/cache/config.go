package cache

import (
	"fmt"
	"math/bits"
	"strings"
)

// ReplacementPolicy selects how a victim is chosen from a full set.
type ReplacementPolicy int

// Supported replacement policies.
const (
	LRU ReplacementPolicy = iota
	Random
)

func (p ReplacementPolicy) String() string {
	switch p {
	case LRU:
		return "lru"
	case Random:
		return "random"
	default:
		return fmt.Sprintf("ReplacementPolicy(%d)", int(p))
	}
}

// ParseReplacementPolicy converts a name such as "lru" or "random" into a
// ReplacementPolicy.
func ParseReplacementPolicy(name string) (ReplacementPolicy, error) {
	switch strings.ToLower(name) {
	case "lru":
		return LRU, nil
	case "random", "rand":
		return Random, nil
	default:
		return 0, &ConfigError{
			Field:  "replacement",
			Value:  name,
			Reason: "must be lru or random",
		}
	}
}

// WritePolicy selects how stores propagate to the backing store.
type WritePolicy int

// Supported write policies.
const (
	WriteThrough WritePolicy = iota
	WriteBack
)

func (p WritePolicy) String() string {
	switch p {
	case WriteThrough:
		return "writethrough"
	case WriteBack:
		return "writeback"
	default:
		return fmt.Sprintf("WritePolicy(%d)", int(p))
	}
}

// ParseWritePolicy converts a name such as "writeback" or "wt" into a
// WritePolicy.
func ParseWritePolicy(name string) (WritePolicy, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "")) {
	case "writethrough", "wt":
		return WriteThrough, nil
	case "writeback", "wb":
		return WriteBack, nil
	default:
		return 0, &ConfigError{
			Field:  "write-policy",
			Value:  name,
			Reason: "must be writethrough or writeback",
		}
	}
}

// Config describes the geometry and timing of a cache.
type Config struct {
	NumSets       uint32
	BlockSize     uint32
	Associativity uint32

	ReplacementPolicy ReplacementPolicy
	WritePolicy       WritePolicy

	CacheAccessCycles  uint32
	MemoryAccessCycles uint32

	// Seed drives the random victim finder.
	Seed uint64
}

// A ConfigError reports a cache configuration that cannot be simulated.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid cache config: %s = %v %s",
		e.Field, e.Value, e.Reason)
}

// Validate checks that the configuration describes a buildable cache.
func (c Config) Validate() error {
	if !isPowerOfTwo(c.NumSets) {
		return &ConfigError{
			Field:  "num-sets",
			Value:  c.NumSets,
			Reason: "must be a power of two",
		}
	}

	if !isPowerOfTwo(c.BlockSize) {
		return &ConfigError{
			Field:  "block-size",
			Value:  c.BlockSize,
			Reason: "must be a power of two",
		}
	}

	if c.Associativity == 0 {
		return &ConfigError{
			Field:  "associativity",
			Value:  c.Associativity,
			Reason: "must be at least 1",
		}
	}

	if c.ReplacementPolicy != LRU && c.ReplacementPolicy != Random {
		return &ConfigError{
			Field:  "replacement",
			Value:  c.ReplacementPolicy,
			Reason: "is unknown",
		}
	}

	if c.WritePolicy != WriteThrough && c.WritePolicy != WriteBack {
		return &ConfigError{
			Field:  "write-policy",
			Value:  c.WritePolicy,
			Reason: "is unknown",
		}
	}

	return nil
}

// OffsetBits returns the number of address bits that select a byte in a block.
func (c Config) OffsetBits() int {
	return bits.TrailingZeros32(c.BlockSize)
}

// IndexBits returns the number of address bits that select a set.
func (c Config) IndexBits() int {
	return bits.TrailingZeros32(c.NumSets)
}

// TotalSize returns the capacity of the cache in bytes.
func (c Config) TotalSize() uint64 {
	return uint64(c.NumSets) * uint64(c.BlockSize) * uint64(c.Associativity)
}

func isPowerOfTwo(x uint32) bool {
	return x != 0 && x&(x-1) == 0
}
