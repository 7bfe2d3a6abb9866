package cache

// A writeStrategy decides how a write policy treats the dirty bit and what
// each access costs under it.
type writeStrategy interface {
	// dirtyOnWrite reports whether a written block becomes dirty.
	dirtyOnWrite() bool

	// cycles returns the cost of an access with the given outcome.
	cycles(isWrite bool, rsp Response) uint64
}

type latency struct {
	cache  uint64
	memory uint64
}

// load costs are the same under both write policies. A dirty victim is
// written back before the block is fetched.
func (l latency) load(rsp Response) uint64 {
	switch {
	case rsp.Hit:
		return l.cache
	case rsp.DirtyEviction:
		return l.cache + 3*l.memory
	default:
		return l.cache + l.memory
	}
}

type writeThroughStrategy struct {
	latency
}

func (s writeThroughStrategy) dirtyOnWrite() bool {
	return false
}

func (s writeThroughStrategy) cycles(isWrite bool, rsp Response) uint64 {
	if !isWrite {
		return s.load(rsp)
	}

	if rsp.Hit {
		return s.cache + s.memory
	}

	return 2*s.cache + 2*s.memory
}

type writeBackStrategy struct {
	latency
}

func (s writeBackStrategy) dirtyOnWrite() bool {
	return true
}

func (s writeBackStrategy) cycles(isWrite bool, rsp Response) uint64 {
	if !isWrite {
		return s.load(rsp)
	}

	if rsp.DirtyEviction {
		return 2*s.cache + 2*s.memory
	}

	return s.cache
}

func newWriteStrategy(cfg Config) writeStrategy {
	l := latency{
		cache:  uint64(cfg.CacheAccessCycles),
		memory: uint64(cfg.MemoryAccessCycles),
	}

	switch cfg.WritePolicy {
	case WriteThrough:
		return writeThroughStrategy{l}
	case WriteBack:
		return writeBackStrategy{l}
	default:
		panic("unknown write policy: " + cfg.WritePolicy.String())
	}
}
