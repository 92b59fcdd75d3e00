package gsplat

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

// Profiler records the duration of the last run of each named stage and a
// set of named counters. Stages are timed through spans, so overlapping
// frames each report their own duration.
type Profiler struct {
	mu     sync.Mutex
	Scopes map[string]time.Duration
	Counts map[string]int
	Order  []string
}

func NewProfiler() *Profiler {
	return &Profiler{
		Scopes: make(map[string]time.Duration),
		Counts: make(map[string]int),
	}
}

// Span is one timed run of a named stage.
type Span struct {
	p     *Profiler
	name  string
	start time.Time
}

// BeginScope starts timing name. The returned span owns its start time.
func (p *Profiler) BeginScope(name string) Span {
	p.mu.Lock()
	if !slices.Contains(p.Order, name) {
		p.Order = append(p.Order, name)
	}
	p.mu.Unlock()
	return Span{p: p, name: name, start: time.Now()}
}

// EndScope stores the span's duration as the latest for its stage.
func (s Span) EndScope() time.Duration {
	d := time.Since(s.start)
	s.p.mu.Lock()
	s.p.Scopes[s.name] = d
	s.p.mu.Unlock()
	return d
}

func (p *Profiler) SetCount(name string, count int) {
	p.mu.Lock()
	p.Counts[name] = count
	p.mu.Unlock()
}

func (p *Profiler) Scope(name string) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Scopes[name]
}

func (p *Profiler) Count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Counts[name]
}

// Reset zeroes timings and keeps the scope order.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k := range p.Scopes {
		p.Scopes[k] = 0
	}
}

func (p *Profiler) GetStatsString() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("Timings (CPU):\n")
	for _, name := range p.Order {
		ms := float64(p.Scopes[name].Microseconds()) / 1000.0
		sb.WriteString(fmt.Sprintf("  %-15s: %.2f ms\n", name, ms))
	}

	sb.WriteString("\nStats:\n")
	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %-15s: %d\n", k, p.Counts[k]))
	}
	return sb.String()
}
