package jobs

import (
	"context"
	"log"
	"time"

	"masterplan-studio/internal/telemetry"
)

// Archiver receives each expired record before the janitor deletes it.
type Archiver interface {
	Archive(ctx context.Context, id string, rec Record) error
}

// Janitor periodically sweeps job records older than the retention window.
// Records are an unbounded-growth resource in both backends; without the
// sweep, disk or memory grows forever.
type Janitor struct {
	store    Store
	interval time.Duration
	maxAge   time.Duration
	archive  Archiver
}

// NewJanitor builds a janitor. archive may be nil.
func NewJanitor(store Store, interval, maxAge time.Duration, archive Archiver) *Janitor {
	if interval <= 0 {
		interval = time.Hour
	}
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &Janitor{store: store, interval: interval, maxAge: maxAge, archive: archive}
}

// Run sweeps once immediately and then on every tick until ctx is done.
// Sweep failures are logged and never stop the loop.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		j.sweepOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (j *Janitor) sweepOnce(ctx context.Context) {
	var onEvict EvictFunc
	if j.archive != nil {
		onEvict = func(id string, rec Record) {
			if err := j.archive.Archive(ctx, id, rec); err != nil {
				log.Printf("archive job %s: %v", id, err)
			}
		}
	}
	removed, err := j.store.Sweep(j.maxAge, onEvict)
	if err != nil {
		log.Printf("sweep job records: %v", err)
	}
	if removed > 0 {
		telemetry.JobsSwept.Add(float64(removed))
		log.Printf("swept %d expired job records", removed)
	}
}
