package generate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"masterplan-studio/internal/jobs"
)

type stubGenerator struct {
	out string
	err error
	req CompletionRequest
}

func (s *stubGenerator) Complete(_ context.Context, req CompletionRequest) (string, error) {
	s.req = req
	return s.out, s.err
}

type recordingReporter struct {
	records []jobs.Record
}

func (r *recordingReporter) Update(_ string, rec jobs.Record) error {
	r.records = append(r.records, rec)
	return nil
}

func TestMockupTaskProgression(t *testing.T) {
	gen := &stubGenerator{out: `Here is the home screen. <svg><rect/></svg>`}
	rep := &recordingReporter{}
	svc := NewService(gen, rep, nil, 0)

	svc.MockupTask("# App - Masterplan", nil, "sess")(context.Background(), "mockup_1")

	require.Len(t, rep.records, 4)
	assert.Equal(t, []int{10, 30, 70, 100}, progressOf(rep.records))

	final := rep.records[3]
	assert.Equal(t, jobs.StatusCompleted, final.Status)
	assert.True(t, final.Completed)
	blocks := final.Results[KindMockups]
	require.Len(t, blocks, 2)
	assert.Equal(t, jobs.BlockSVG, blocks[1].Type)

	assert.Contains(t, gen.req.Prompt, "# App - Masterplan")
}

func TestMockupTaskFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("model unavailable")}
	rep := &recordingReporter{}
	svc := NewService(gen, rep, nil, 0)

	svc.MockupTask("plan", nil, "sess")(context.Background(), "mockup_1")

	final := rep.records[len(rep.records)-1]
	assert.Equal(t, jobs.StatusError, final.Status)
	assert.True(t, final.Completed)
	assert.Contains(t, final.Message, "Error generating mockups")
}

func TestMockupTaskUnconfigured(t *testing.T) {
	rep := &recordingReporter{}
	svc := NewService(nil, rep, nil, 0)
	assert.False(t, svc.Configured())

	svc.MockupTask("plan", nil, "sess")(context.Background(), "mockup_1")

	require.Len(t, rep.records, 1)
	assert.Equal(t, jobs.StatusError, rep.records[0].Status)
	assert.Contains(t, rep.records[0].Message, "not configured")
}

func TestArchitectureTaskProgression(t *testing.T) {
	gen := &stubGenerator{out: "Overview.\n<svg><g/></svg>"}
	rep := &recordingReporter{}
	svc := NewService(gen, rep, nil, 0)

	svc.ArchitectureTask("plan")(context.Background(), "arch_1")

	require.Len(t, rep.records, 4)
	assert.Equal(t, []int{10, 30, 70, 100}, progressOf(rep.records))

	final := rep.records[3]
	assert.Equal(t, jobs.StatusCompleted, final.Status)
	assert.NotEmpty(t, final.Results[KindDiagrams])
	assert.Contains(t, gen.req.Prompt, "plan")
}

type countingSaver struct {
	sessions []string
	images   int
}

func (c *countingSaver) SaveAll(_ context.Context, sessionID string, images []string) []string {
	c.sessions = append(c.sessions, sessionID)
	c.images = len(images)
	out := make([]string, len(images))
	return out[:len(images)]
}

func TestMockupTaskSavesSketches(t *testing.T) {
	gen := &stubGenerator{out: "text"}
	rep := &recordingReporter{}
	saver := &countingSaver{}
	svc := NewService(gen, rep, saver, 0)

	svc.MockupTask("plan", []string{"aGk=", "aGk="}, "sess-1")(context.Background(), "mockup_1")

	assert.Equal(t, []string{"sess-1"}, saver.sessions)
	assert.Equal(t, 2, saver.images)
	assert.Contains(t, rep.records[1].Message, "2 sketch images")
}

func progressOf(records []jobs.Record) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.Progress
	}
	return out
}
