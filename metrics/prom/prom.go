// Package prom exports cache counters as Prometheus metrics.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/sim"
)

// Adapter is a hook that mirrors cache accesses into Prometheus counters.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	accesses  *prometheus.CounterVec
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions *prometheus.CounterVec
	cycles    prometheus.Counter
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
//
// Several adapters may share a registry as long as their const label values
// differ.
func New(
	reg prometheus.Registerer,
	ns, sub string,
	constLabels prometheus.Labels,
) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	a := &Adapter{
		accesses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "accesses_total",
				Help:        "Cache accesses by kind",
				ConstLabels: constLabels,
			},
			[]string{"kind"},
		),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hits_total",
			Help:        "Cache hits",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Cache misses",
			ConstLabels: constLabels,
		}),
		evictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "evictions_total",
				Help:        "Cache evictions by dirtiness of the victim",
				ConstLabels: constLabels,
			},
			[]string{"dirty"},
		),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "cycles_total",
			Help:        "Cycles spent on cache accesses",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.accesses, a.hits, a.misses, a.evictions, a.cycles)

	return a
}

// Func records one access.
func (a *Adapter) Func(ctx sim.HookCtx) {
	if ctx.Pos != cache.HookPosAccess {
		return
	}

	record, ok := ctx.Item.(cache.AccessRecord)
	if !ok {
		return
	}

	a.Observe(record)
}

// Observe records the outcome of one access.
func (a *Adapter) Observe(record cache.AccessRecord) {
	kind := "load"
	if record.IsWrite {
		kind = "store"
	}

	a.accesses.WithLabelValues(kind).Inc()

	if record.Hit {
		a.hits.Inc()
	} else {
		a.misses.Inc()
	}

	if record.Eviction {
		a.evictions.WithLabelValues(dirty(record.DirtyEviction)).Inc()
	}

	a.cycles.Add(float64(record.Cycles))
}

// dirty maps the dirtiness of a victim to a stable label value.
func dirty(d bool) string {
	if d {
		return "true"
	}

	return "false"
}

// WriteToTextfile writes every metric of the gatherer in the text exposition
// format, suitable for the node exporter's textfile collector.
func WriteToTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
