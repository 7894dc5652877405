// Package performance tracks timing statistics for the hot phases of tile
// resolution (cache lookup, store read, prompt composition, provider call,
// persist) so operators can see where requests spend their time.
package performance

import (
	"sync"
	"time"
)

// Profiler aggregates per-phase timing metrics. Safe for concurrent use.
type Profiler struct {
	mu      sync.RWMutex
	metrics map[string]*Metric
	enabled bool
	started time.Time
}

// Metric holds aggregate statistics for one named phase.
type Metric struct {
	Name      string        `json:"name"`
	Count     int64         `json:"count"`
	TotalTime time.Duration `json:"totalTime"`
	MinTime   time.Duration `json:"minTime"`
	MaxTime   time.Duration `json:"maxTime"`
	LastTime  time.Duration `json:"lastTime"`
	LastCall  time.Time     `json:"lastCall"`
}

// AvgTime returns the mean duration of recorded calls.
func (m *Metric) AvgTime() time.Duration {
	if m.Count == 0 {
		return 0
	}
	return m.TotalTime / time.Duration(m.Count)
}

// Operation is a single in-flight timed phase.
type Operation struct {
	profiler *Profiler
	name     string
	start    time.Time
}

// NewProfiler creates a profiler. A disabled profiler records nothing and
// costs nothing on the request path.
func NewProfiler(enabled bool) *Profiler {
	return &Profiler{
		metrics: make(map[string]*Metric),
		enabled: enabled,
		started: time.Now(),
	}
}

// Start begins timing a phase. Safe on a nil or disabled profiler.
func (p *Profiler) Start(name string) *Operation {
	if p == nil || !p.enabled {
		return nil
	}
	return &Operation{profiler: p, name: name, start: time.Now()}
}

// End completes the phase and folds the elapsed time into its metric.
func (o *Operation) End() {
	if o == nil {
		return
	}
	elapsed := time.Since(o.start)

	o.profiler.mu.Lock()
	defer o.profiler.mu.Unlock()

	m, ok := o.profiler.metrics[o.name]
	if !ok {
		m = &Metric{Name: o.name, MinTime: elapsed}
		o.profiler.metrics[o.name] = m
	}
	m.Count++
	m.TotalTime += elapsed
	m.LastTime = elapsed
	m.LastCall = time.Now()
	if elapsed < m.MinTime {
		m.MinTime = elapsed
	}
	if elapsed > m.MaxTime {
		m.MaxTime = elapsed
	}
}

// Snapshot returns a copy of all metrics keyed by phase name.
func (p *Profiler) Snapshot() map[string]Metric {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]Metric, len(p.metrics))
	for name, m := range p.metrics {
		out[name] = *m
	}
	return out
}

// Uptime returns the time elapsed since the profiler was created.
func (p *Profiler) Uptime() time.Duration {
	if p == nil {
		return 0
	}
	return time.Since(p.started)
}
