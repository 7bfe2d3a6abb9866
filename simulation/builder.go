package simulation

import (
	"github.com/rs/xid"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/monitoring"
)

// Builder can be used to build a simulation.
type Builder struct {
	engine *cache.Engine
	name   string
	bar    *monitoring.ProgressBar
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithEngine sets the engine to simulate. It is required.
func (b Builder) WithEngine(e *cache.Engine) Builder {
	b.engine = e
	return b
}

// WithName sets the name of the simulation.
func (b Builder) WithName(name string) Builder {
	b.name = name
	return b
}

// WithProgressBar sets a progress bar that advances with every byte of trace
// consumed.
func (b Builder) WithProgressBar(bar *monitoring.ProgressBar) Builder {
	b.bar = bar
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.engine == nil {
		panic("a simulation requires an engine")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id:     xid.New().String(),
		name:   b.name,
		engine: b.engine,
		bar:    b.bar,
	}

	if s.name == "" {
		s.name = s.id
	}

	return s
}
