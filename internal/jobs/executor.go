package jobs

import (
	"errors"
	"sync"
)

// Executor starts a unit of background work. Run must not block the caller:
// the launch contract is that callers get their job id back immediately.
type Executor interface {
	Run(fn func()) error
}

// ErrSaturated is returned when a bounded executor cannot accept more work.
var ErrSaturated = errors.New("executor queue is full")

// GoExecutor spawns one goroutine per job. This preserves the historical
// behavior: no pool, no backpressure, a burst of launches is a burst of
// goroutines.
type GoExecutor struct{}

func (GoExecutor) Run(fn func()) error {
	go fn()
	return nil
}

// PoolExecutor bounds concurrency with a fixed set of workers and a buffered
// queue. Run never blocks; it fails with ErrSaturated once the queue is full.
type PoolExecutor struct {
	tasks chan func()
	once  sync.Once
}

// NewPoolExecutor starts workers goroutines draining a queue of depth
// workers*4. They run for the lifetime of the process, matching the
// fire-and-forget launch model.
func NewPoolExecutor(workers int) *PoolExecutor {
	if workers < 1 {
		workers = 1
	}
	p := &PoolExecutor{tasks: make(chan func(), workers*4)}
	for i := 0; i < workers; i++ {
		go func() {
			for fn := range p.tasks {
				fn()
			}
		}()
	}
	return p
}

func (p *PoolExecutor) Run(fn func()) error {
	select {
	case p.tasks <- fn:
		return nil
	default:
		return ErrSaturated
	}
}

// Close stops accepting work and lets idle workers exit. Queued tasks still
// run.
func (p *PoolExecutor) Close() {
	p.once.Do(func() { close(p.tasks) })
}
