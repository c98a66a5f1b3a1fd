package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"masterplan-studio/internal/config"
	"masterplan-studio/internal/generate"
	"masterplan-studio/internal/jobs"
	"masterplan-studio/internal/ratelimit"
	"masterplan-studio/internal/telemetry"
)

const version = "1.0"

// Server wires the HTTP surface the frontend talks to: launching generation
// jobs, polling their status, session reset, and health.
type Server struct {
	cfg      config.Config
	jobs     *jobs.Manager
	gen      *generate.Service
	sessions *Sessions
	limiter  *ratelimit.Bucket
}

// New constructs the API server. limiter may be nil to disable rate
// limiting.
func New(cfg config.Config, manager *jobs.Manager, gen *generate.Service, sessions *Sessions, limiter *ratelimit.Bucket) *Server {
	return &Server{
		cfg:      cfg,
		jobs:     manager,
		gen:      gen,
		sessions: sessions,
		limiter:  limiter,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware(s.cfg.CORSOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   version,
		})
	})

	r.Mount("/metrics", telemetry.Handler())

	r.Post("/generate-mockups", s.handleGenerateMockups)
	r.Get("/check-mockup-status", s.handleCheckMockupStatus)
	r.Post("/generate-architecture", s.handleGenerateArchitecture)
	r.Get("/check-architecture-status", s.handleCheckArchitectureStatus)
	r.Post("/reset", s.handleReset)
	return r
}

type generateRequest struct {
	Masterplan   string   `json:"masterplan"`
	SketchImages []string `json:"sketch_images"`
}

type launchResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status,omitempty"`
	JobID   string `json:"job_id,omitempty"`
	Message string `json:"message"`
}

func (s *Server) handleGenerateMockups(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, launchResponse{Success: false, Message: "invalid json"})
		return
	}
	sess := s.sessions.FromRequest(w, r)

	masterplan := req.Masterplan
	if masterplan == "" {
		masterplan = sess.Masterplan
	}
	if masterplan == "" {
		writeJSON(w, http.StatusBadRequest, launchResponse{Success: false, Message: "No masterplan available to generate mockups"})
		return
	}
	if !s.allowLaunch(w, r, sess.ID) {
		return
	}

	id, err := s.jobs.Launch("mockup", s.gen.MockupTask(masterplan, req.SketchImages, sess.ID))
	if err != nil {
		log.Printf("launch mockup job: %v", err)
		writeJSON(w, http.StatusInternalServerError, launchResponse{Success: false, Message: "Error initiating mockup generation"})
		return
	}
	plan := masterplan
	s.sessions.Update(sess.ID, func(sess *Session) {
		sess.MockupJobID = id
		sess.Masterplan = plan
	})

	writeJSON(w, http.StatusOK, launchResponse{
		Success: true,
		Status:  jobs.StatusProcessing,
		JobID:   id,
		Message: "Mockup generation has started in the background.",
	})
}

func (s *Server) handleCheckMockupStatus(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.FromRequest(w, r)
	id := r.URL.Query().Get("job_id")
	if id == "" {
		id = sess.MockupJobID
	}
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  jobs.StatusError,
			"message": "No job ID provided or found in session",
		})
		return
	}

	rec := s.jobs.Status(id)
	if rec.Status == jobs.StatusCompleted && rec.Completed {
		if blocks, ok := rec.Results[generate.KindMockups]; ok {
			s.sessions.Update(sess.ID, func(sess *Session) { sess.Mockups = blocks })
			writeJSON(w, http.StatusOK, map[string]any{
				"success":            true,
				"status":             jobs.StatusCompleted,
				generate.KindMockups: blocks,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGenerateArchitecture(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, launchResponse{Success: false, Message: "invalid json"})
		return
	}
	sess := s.sessions.FromRequest(w, r)

	masterplan := req.Masterplan
	if masterplan == "" {
		masterplan = sess.Masterplan
	}
	if masterplan == "" {
		writeJSON(w, http.StatusBadRequest, launchResponse{Success: false, Message: "No masterplan available to generate architecture diagrams"})
		return
	}
	if !s.allowLaunch(w, r, sess.ID) {
		return
	}

	id, err := s.jobs.Launch("arch", s.gen.ArchitectureTask(masterplan))
	if err != nil {
		log.Printf("launch architecture job: %v", err)
		writeJSON(w, http.StatusInternalServerError, launchResponse{Success: false, Message: "Error initiating architecture generation"})
		return
	}
	plan := masterplan
	s.sessions.Update(sess.ID, func(sess *Session) {
		sess.ArchitectureJobID = id
		sess.Masterplan = plan
	})

	writeJSON(w, http.StatusOK, launchResponse{
		Success: true,
		Status:  jobs.StatusProcessing,
		JobID:   id,
		Message: "Architecture diagram generation has started in the background.",
	})
}

func (s *Server) handleCheckArchitectureStatus(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.FromRequest(w, r)
	id := r.URL.Query().Get("job_id")
	if id == "" {
		id = sess.ArchitectureJobID
	}
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  jobs.StatusError,
			"message": "No job ID provided or found in session",
		})
		return
	}

	rec := s.jobs.Status(id)
	if rec.Status == jobs.StatusCompleted && rec.Completed {
		if blocks, ok := rec.Results[generate.KindDiagrams]; ok {
			s.sessions.Update(sess.ID, func(sess *Session) { sess.Diagrams = blocks })
			writeJSON(w, http.StatusOK, map[string]any{
				"success":             true,
				"status":              jobs.StatusCompleted,
				generate.KindDiagrams: blocks,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, rec)
}

type resetRequest struct {
	PreserveMasterplan *bool `json:"preserve_masterplan"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	preserve := true
	if req.PreserveMasterplan != nil {
		preserve = *req.PreserveMasterplan
	}

	sess := s.sessions.FromRequest(w, r)
	s.sessions.Reset(sess.ID, preserve)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// allowLaunch applies the per-session rate limit when one is configured.
func (s *Server) allowLaunch(w http.ResponseWriter, r *http.Request, sessionID string) bool {
	if s.limiter == nil {
		return true
	}
	allowed, err := s.limiter.Allow(r.Context(), sessionID)
	if err != nil {
		// A broken limiter should not take generation down with it.
		log.Printf("rate limiter: %v", err)
		return true
	}
	if !allowed {
		telemetry.RateLimitRejects.Inc()
		writeJSON(w, http.StatusTooManyRequests, launchResponse{Success: false, Message: "Too many generation requests, try again shortly"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
