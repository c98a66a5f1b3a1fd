package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"masterplan-studio/internal/telemetry"
)

func waitTerminal(t *testing.T, m *Manager, id string) Record {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rec := m.Status(id); rec.Terminal() {
			return rec
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal status", id)
	return Record{}
}

func TestLaunchImmediatePollSeesProcessing(t *testing.T) {
	m := NewManager(NewMemoryStore(), nil)

	release := make(chan struct{})
	id, err := m.Launch("mockup", func(ctx context.Context, jobID string) {
		<-release
		_ = m.Update(jobID, Completed("mockups", "done", []ContentBlock{{Type: BlockText, Content: "x"}}))
	})
	require.NoError(t, err)
	assert.Regexp(t, `^mockup_\d{14}_\d{1,4}$`, id)

	// The seed write completes before Launch returns: never not_found.
	rec := m.Status(id)
	assert.Equal(t, StatusProcessing, rec.Status)
	assert.Zero(t, rec.Progress)
	assert.False(t, rec.Completed)
	assert.False(t, rec.StartTime.IsZero())

	close(release)
	final := waitTerminal(t, m, id)
	assert.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	assert.True(t, final.Completed)
	assert.NotEmpty(t, final.Results["mockups"])

	// Terminal state persists under repeated polling.
	for i := 0; i < 3; i++ {
		again := m.Status(id)
		assert.Equal(t, final.Status, again.Status)
		assert.Equal(t, final.Progress, again.Progress)
	}
}

func TestLaunchStagedProgress(t *testing.T) {
	m := NewManager(NewMemoryStore(), nil)

	id, err := m.Launch("mockup", func(ctx context.Context, jobID string) {
		for _, p := range []int{10, 30, 70} {
			_ = m.Update(jobID, Processing(p, "working"))
		}
		_ = m.Update(jobID, Completed("mockups", "done", []ContentBlock{{Type: BlockSVG, Content: "<svg/>"}}))
	})
	require.NoError(t, err)

	final := waitTerminal(t, m, id)
	assert.Equal(t, 100, final.Progress)
}

func TestLaunchFailingTask(t *testing.T) {
	m := NewManager(NewMemoryStore(), nil)

	id, err := m.Launch("arch", func(ctx context.Context, jobID string) {
		_ = m.Update(jobID, Failed("Error generating architecture diagrams: model unavailable"))
	})
	require.NoError(t, err)

	final := waitTerminal(t, m, id)
	assert.Equal(t, StatusError, final.Status)
	assert.True(t, final.Completed)
	assert.NotEmpty(t, final.Message)
}

func TestLaunchTaskWithoutTerminalRecordIsBackstopped(t *testing.T) {
	m := NewManager(NewMemoryStore(), nil)

	// Task exits while still "processing": the manager must not leave the
	// record stuck, since polling is the caller's only signal.
	id, err := m.Launch("mockup", func(ctx context.Context, jobID string) {})
	require.NoError(t, err)

	final := waitTerminal(t, m, id)
	assert.Equal(t, StatusError, final.Status)
	assert.Contains(t, final.Message, "without reporting a result")
}

func TestLaunchPanickingTask(t *testing.T) {
	m := NewManager(NewMemoryStore(), nil)

	id, err := m.Launch("mockup", func(ctx context.Context, jobID string) {
		panic("boom")
	})
	require.NoError(t, err)

	final := waitTerminal(t, m, id)
	assert.Equal(t, StatusError, final.Status)
	assert.Contains(t, final.Message, "boom")
}

func TestLaunchBackToBackDistinctIDs(t *testing.T) {
	m := NewManager(NewMemoryStore(), nil)
	task := func(ctx context.Context, jobID string) {
		_ = m.Update(jobID, Failed("stub"))
	}

	a, err := m.Launch("mockup", task)
	require.NoError(t, err)
	b, err := m.Launch("mockup", task)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

type failingExecutor struct{}

func (failingExecutor) Run(func()) error { return errors.New("out of threads") }

func TestLaunchExecutorFailure(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, failingExecutor{})

	id, err := m.Launch("mockup", func(ctx context.Context, jobID string) {})
	require.ErrorIs(t, err, ErrLaunchFailed)
	assert.Empty(t, id)
}

func TestLaunchExecutorFailureMarksRecord(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, failingExecutor{})

	_, err := m.Launch("mockup", func(ctx context.Context, jobID string) {})
	require.Error(t, err)

	// The seeded record is overwritten with a terminal error so pollers do
	// not wait forever on a job that never started.
	var found bool
	store.mu.RLock()
	for _, e := range store.entries {
		if e.rec.Status == StatusError {
			found = true
		}
	}
	store.mu.RUnlock()
	assert.True(t, found)
}

type inlineExecutor struct{}

func (inlineExecutor) Run(fn func()) error {
	fn()
	return nil
}

func TestLaunchInFlightGaugeSpansTheTask(t *testing.T) {
	m := NewManager(NewMemoryStore(), inlineExecutor{})

	// An inline executor finishes the task before Launch returns; the gauge
	// must already be up while the task runs and settle back, never dipping
	// below its starting value.
	before := testutil.ToFloat64(telemetry.JobsInFlight)
	var during float64
	_, err := m.Launch("mockup", func(ctx context.Context, jobID string) {
		during = testutil.ToFloat64(telemetry.JobsInFlight)
		_ = m.Update(jobID, Failed("stub"))
	})
	require.NoError(t, err)

	assert.Equal(t, before+1, during)
	assert.Equal(t, before, testutil.ToFloat64(telemetry.JobsInFlight))
}

func TestLaunchExecutorFailureRestoresGauge(t *testing.T) {
	m := NewManager(NewMemoryStore(), failingExecutor{})

	before := testutil.ToFloat64(telemetry.JobsInFlight)
	_, err := m.Launch("mockup", func(ctx context.Context, jobID string) {})
	require.Error(t, err)
	assert.Equal(t, before, testutil.ToFloat64(telemetry.JobsInFlight))
}

func TestPoolExecutorRunsTasks(t *testing.T) {
	pool := NewPoolExecutor(2)
	defer pool.Close()

	done := make(chan struct{})
	require.NoError(t, pool.Run(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool never ran the task")
	}
}

func TestPoolExecutorSaturation(t *testing.T) {
	pool := NewPoolExecutor(1)
	defer pool.Close()

	block := make(chan struct{})
	defer close(block)

	// One running task plus a full queue; the next Run must fail instead of
	// blocking the launcher.
	_ = pool.Run(func() { <-block })
	time.Sleep(10 * time.Millisecond)
	saturated := false
	for i := 0; i < 10; i++ {
		if err := pool.Run(func() { <-block }); errors.Is(err, ErrSaturated) {
			saturated = true
			break
		}
	}
	assert.True(t, saturated)
}
