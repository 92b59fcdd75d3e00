package gsplat

import "github.com/gekko3d/gsplat/splatrt/rt/parallel"

type RasterizerBuilder struct {
	logger   Logger
	profiler *Profiler
	workers  int
}

func NewRasterizerBuilder() *RasterizerBuilder {
	return &RasterizerBuilder{}
}

func (b *RasterizerBuilder) UseLogger(l Logger) *RasterizerBuilder {
	b.logger = l
	return b
}

// UseWorkers sets the pool size. Zero or less means GOMAXPROCS.
func (b *RasterizerBuilder) UseWorkers(n int) *RasterizerBuilder {
	b.workers = n
	return b
}

func (b *RasterizerBuilder) UseProfiler(p *Profiler) *RasterizerBuilder {
	b.profiler = p
	return b
}

func (b *RasterizerBuilder) Build() *Rasterizer {
	r := &Rasterizer{
		logger:   b.logger,
		profiler: b.profiler,
		pool:     parallel.NewPool(b.workers),
	}
	if r.logger == nil {
		r.logger = NewNopLogger()
	}
	if r.profiler == nil {
		r.profiler = NewProfiler()
	}
	r.logger.Debugf("rasterizer started with %d workers", r.pool.Workers())
	return r
}
