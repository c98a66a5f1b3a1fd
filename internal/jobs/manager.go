package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"masterplan-studio/internal/telemetry"
)

// Task is one unit of long-running background work. It owns all writes to
// its job's record: it reports progress through the store while running and
// must end by writing exactly one terminal record. The manager backstops
// tasks that break that contract.
type Task func(ctx context.Context, jobID string)

// ErrLaunchFailed wraps executor failures surfaced by Launch.
var ErrLaunchFailed = errors.New("launch job")

// Manager launches background jobs and answers status polls. It is the only
// writer of a job's initial record; after launch the task owns the record
// until the janitor eventually deletes it.
type Manager struct {
	store Store
	exec  Executor
	ctx   context.Context
}

// NewManager builds a manager over the given store. A nil executor defaults
// to one goroutine per job.
func NewManager(store Store, exec Executor) *Manager {
	if exec == nil {
		exec = GoExecutor{}
	}
	return &Manager{store: store, exec: exec, ctx: context.Background()}
}

// Launch seeds the initial processing record, starts the task in the
// background, and returns the job id. The seed write completes before Launch
// returns, so an immediate poll never sees not_found. The caller never
// blocks on task completion.
//
// If the executor refuses the task, the seeded record is overwritten with a
// terminal error record before ErrLaunchFailed is returned, so pollers that
// already hold the id see the failure too.
func (m *Manager) Launch(jobType string, task Task) (string, error) {
	id := NewID(jobType)
	initial := Record{
		Status:    StatusProcessing,
		Progress:  0,
		Message:   fmt.Sprintf("Starting %s job...", jobType),
		StartTime: time.Now(),
	}
	if err := m.store.Put(id, initial); err != nil {
		return "", fmt.Errorf("seed job record: %w", err)
	}

	// The gauge goes up before the task can possibly run; a fast inline
	// executor would otherwise decrement it below zero.
	telemetry.JobsInFlight.Inc()
	if err := m.exec.Run(func() { m.runTask(id, jobType, task) }); err != nil {
		telemetry.JobsInFlight.Dec()
		_ = m.store.Put(id, Failed(fmt.Sprintf("Could not start %s job: %v", jobType, err)))
		return "", fmt.Errorf("%w %s: %v", ErrLaunchFailed, jobType, err)
	}

	telemetry.JobsLaunched.Inc()
	log.Printf("launched %s job %s", jobType, id)
	return id, nil
}

// Status returns the current record for a job id. Unknown ids yield the
// not_found sentinel; the poll itself has no side effects.
func (m *Manager) Status(id string) Record {
	return m.store.Get(id)
}

// Update writes a progress or terminal record on behalf of the owning task.
func (m *Manager) Update(id string, rec Record) error {
	return m.store.Put(id, rec)
}

// runTask executes the task and enforces the terminal-record guarantee:
// whatever happens inside the task, the record never stays stuck at
// processing once the task has stopped running.
func (m *Manager) runTask(id, jobType string, task Task) {
	defer telemetry.JobsInFlight.Dec()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("%s job %s panicked: %v", jobType, id, r)
			_ = m.store.Put(id, Failed(fmt.Sprintf("Error in %s job: %v", jobType, r)))
			telemetry.JobsFailed.Inc()
			return
		}
		switch rec := m.store.Get(id); rec.Status {
		case StatusCompleted:
			telemetry.JobsCompleted.Inc()
		case StatusError:
			telemetry.JobsFailed.Inc()
		default:
			log.Printf("%s job %s returned without a terminal record", jobType, id)
			_ = m.store.Put(id, Failed(fmt.Sprintf("%s job stopped without reporting a result", jobType)))
			telemetry.JobsFailed.Inc()
		}
	}()

	task(m.ctx, id)
}
