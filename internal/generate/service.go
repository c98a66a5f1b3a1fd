package generate

import (
	"context"
	"fmt"
	"log"

	"masterplan-studio/internal/jobs"
)

// Result payload kinds written by the task adapters.
const (
	KindMockups  = "mockups"
	KindDiagrams = "diagrams"
)

// Reporter is the slice of the job manager the adapters report through.
type Reporter interface {
	Update(id string, rec jobs.Record) error
}

// SketchSaver persists user-drawn interface sketches. SaveAll logs and skips
// individual failures; losing a sketch must not fail the mockup job.
type SketchSaver interface {
	SaveAll(ctx context.Context, sessionID string, images []string) []string
}

// Service builds the long-running task bodies for mockup and architecture
// generation. Both follow the same shape: staged progress records into the
// job store, one external model call, and exactly one terminal record.
type Service struct {
	gen       Generator
	status    Reporter
	sketches  SketchSaver
	maxTokens int
}

// NewService wires the adapters. gen may be nil when no API key is
// configured; launched jobs then fail immediately with a descriptive record.
// sketches may be nil to skip sketch persistence.
func NewService(gen Generator, status Reporter, sketches SketchSaver, maxTokens int) *Service {
	if maxTokens <= 0 {
		maxTokens = 5000
	}
	return &Service{gen: gen, status: status, sketches: sketches, maxTokens: maxTokens}
}

// Configured reports whether the generative backend is usable.
func (s *Service) Configured() bool {
	return s.gen != nil
}

// MockupTask returns the task body for one mockup generation job.
func (s *Service) MockupTask(masterplan string, sketchImages []string, sessionID string) jobs.Task {
	return func(ctx context.Context, jobID string) {
		s.generateMockups(ctx, jobID, masterplan, sketchImages, sessionID)
	}
}

// ArchitectureTask returns the task body for one diagram generation job.
func (s *Service) ArchitectureTask(masterplan string) jobs.Task {
	return func(ctx context.Context, jobID string) {
		s.generateArchitecture(ctx, jobID, masterplan)
	}
}

func (s *Service) generateMockups(ctx context.Context, jobID, masterplan string, sketchImages []string, sessionID string) {
	if s.gen == nil {
		s.report(jobID, jobs.Failed("Generation API key not configured"))
		return
	}

	s.report(jobID, jobs.Processing(10, "Preparing mockup generation request..."))

	var saved []string
	if s.sketches != nil && len(sketchImages) > 0 {
		saved = s.sketches.SaveAll(ctx, sessionID, sketchImages)
	}

	s.report(jobID, jobs.Processing(30, fmt.Sprintf("Calling the generation model to produce mockups with %d sketch images...", len(saved))))

	out, err := s.gen.Complete(ctx, CompletionRequest{
		System:      mockupSystemPrompt,
		Prompt:      mockupPrompt(masterplan, len(saved)),
		MaxTokens:   s.maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		log.Printf("mockup job %s: %v", jobID, err)
		s.report(jobID, jobs.Failed(fmt.Sprintf("Error generating mockups: %v", err)))
		return
	}

	s.report(jobID, jobs.Processing(70, "Processing model response..."))

	s.report(jobID, jobs.Completed(KindMockups, "Mockups generated successfully", ExtractBlocks(out)))
}

func (s *Service) generateArchitecture(ctx context.Context, jobID, masterplan string) {
	if s.gen == nil {
		s.report(jobID, jobs.Failed("Generation API key not configured"))
		return
	}

	s.report(jobID, jobs.Processing(10, "Preparing architecture diagram request..."))
	s.report(jobID, jobs.Processing(30, "Calling the generation model to produce architecture diagrams..."))

	out, err := s.gen.Complete(ctx, CompletionRequest{
		System:      architectureSystemPrompt,
		Prompt:      architecturePrompt(masterplan),
		MaxTokens:   s.maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		log.Printf("architecture job %s: %v", jobID, err)
		s.report(jobID, jobs.Failed(fmt.Sprintf("Error generating architecture diagrams: %v", err)))
		return
	}

	s.report(jobID, jobs.Processing(70, "Processing model response..."))

	s.report(jobID, jobs.Completed(KindDiagrams, "Architecture diagrams generated successfully", ExtractBlocks(out)))
}

func (s *Service) report(jobID string, rec jobs.Record) {
	if err := s.status.Update(jobID, rec); err != nil {
		log.Printf("update job %s status: %v", jobID, err)
	}
}
