package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"scriber/internal/blob"
	"scriber/internal/config"
	"scriber/internal/deps"
	"scriber/internal/fileutil"
	"scriber/internal/jobs"
	"scriber/internal/logging"
	"scriber/internal/pipeline"
	"scriber/internal/services"
)

// Server is the HTTP accept/status surface. It owns no business logic: it
// persists an accepted upload, creates the job row, and hands the run to a
// pipeline goroutine before answering.
type Server struct {
	cfg    *config.Config
	store  *jobs.Store
	blobs  blob.Store
	runner *pipeline.Runner
	logger *slog.Logger

	listener net.Listener
	server   *http.Server
	runs     sync.WaitGroup
}

// NewServer wires the API server from its collaborators.
func NewServer(cfg *config.Config, store *jobs.Store, blobs blob.Store, runner *pipeline.Runner, logger *slog.Logger) *Server {
	srv := &Server{
		cfg:    cfg,
		store:  store,
		blobs:  blobs,
		runner: runner,
		logger: logging.NewComponentLogger(logger, "api-server"),
	}

	token := strings.TrimSpace(cfg.API.Token)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/jobs", authMiddleware(token, srv.handleJobs))
	mux.HandleFunc("/api/jobs/", authMiddleware(token, srv.handleJob))
	mux.HandleFunc("/api/health", authMiddleware(token, srv.handleHealth))
	// Download tokens are single use and short lived; they are the auth.
	mux.HandleFunc("/api/download/", srv.handleDownload)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Start binds the configured address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", strings.TrimSpace(s.cfg.API.Bind))
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down gracefully and waits for in-flight pipeline
// runs to reach a terminal job state.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	s.runs.Wait()
}

// Addr returns the bound listen address, usable once Start has returned.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleAccept(w, r)
	case http.MethodGet:
		s.handleList(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleAccept implements the async accept contract: the response is sent
// as soon as the upload is durable and the job row exists.
func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.cfg.API.MaxUploadMiB) << 20
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	file, header, err := r.FormFile("media")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing media file")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "upload.bin"
	}
	uploadPath := filepath.Join(s.cfg.Paths.StagingDir, "uploads", uuid.NewString()[:8]+"-"+name)
	if err := fileutil.SaveStream(file, uploadPath); err != nil {
		s.logger.Error("failed to persist upload", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	job, err := s.store.Create(r.Context(), uploadPath, strings.TrimSpace(r.FormValue("owner")))
	if err != nil {
		s.logger.Error("failed to create job", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}
	if title := strings.TrimSpace(r.FormValue("title")); title != "" {
		job.Title = title
		if err := s.store.Update(r.Context(), job); err != nil {
			s.logger.Warn("failed to persist title override", logging.Error(err))
		}
	}

	s.spawnRun(job)
	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"id":     job.ID,
		"status": string(job.Status),
	})
}

// spawnRun starts the pipeline for job on a fresh background context. The
// request context is not used: the run must outlive the response.
func (s *Server) spawnRun(job *jobs.Job) {
	runCtx := services.WithRequestID(context.Background(), uuid.NewString())
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		_ = s.runner.Run(runCtx, job)
	}()
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var (
		items []*jobs.Job
		err   error
	)
	if owner := strings.TrimSpace(r.URL.Query().Get("owner")); owner != "" {
		items, err = s.store.ListByOwner(r.Context(), owner)
	} else {
		items, err = s.store.List(r.Context())
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	payload := make([]map[string]any, 0, len(items))
	for _, job := range items {
		payload = append(payload, s.jobSummary(job))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": payload})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	job, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	payload := s.jobSummary(job)
	if job.Status == jobs.StatusProcessed {
		payload["subtitleText"] = job.SubtitleText
		if ref := s.mediaReference(job.ResultRef); ref != "" {
			payload["mediaReference"] = ref
		}
		if ref := s.mediaReference(job.ThumbnailRef); ref != "" {
			payload["thumbnailReference"] = ref
		}
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) jobSummary(job *jobs.Job) map[string]any {
	payload := map[string]any{
		"id":        job.ID,
		"title":     job.Title,
		"status":    string(job.Status),
		"createdAt": job.CreatedAt.Format(time.RFC3339),
		"updatedAt": job.UpdatedAt.Format(time.RFC3339),
		"progress": map[string]any{
			"stage":   job.ProgressStage,
			"percent": job.ProgressPercent,
			"message": job.ProgressMessage,
		},
	}
	if job.OwnerID != "" {
		payload["owner"] = job.OwnerID
	}
	if job.SegmentCount > 0 {
		payload["segmentCount"] = job.SegmentCount
	}
	if job.Status == jobs.StatusFailed {
		payload["error"] = job.ErrorMessage
	}
	return payload
}

// mediaReference mints a fresh download token for ref. Each status request
// gets its own token; failures degrade to omitting the reference.
func (s *Server) mediaReference(ref string) string {
	if ref == "" {
		return ""
	}
	ttl := time.Duration(s.cfg.API.SignedURLTTLSeconds) * time.Second
	token, err := s.blobs.SignedURL(ref, ttl)
	if err != nil {
		s.logger.Warn("failed to mint download token", logging.Error(err), logging.String("ref", ref))
		return ""
	}
	return "/api/download/" + token
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	summary, err := s.store.Health(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "job store unavailable")
		return
	}

	statuses := deps.CheckBinaries(deps.Required(s.cfg))
	binaries := make([]map[string]any, 0, len(statuses))
	healthy := true
	for _, status := range statuses {
		binaries = append(binaries, map[string]any{
			"name":      status.Name,
			"available": status.Available,
			"detail":    status.Detail,
		})
		if !status.Available && !status.Optional {
			healthy = false
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"healthy": healthy,
		"jobs": map[string]int{
			"total":      summary.Total,
			"processing": summary.Processing,
			"processed":  summary.Processed,
			"failed":     summary.Failed,
		},
		"dependencies": binaries,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	token := strings.TrimPrefix(r.URL.Path, "/api/download/")
	if token == "" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}

	ref, err := s.blobs.Resolve(token)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	rc, err := s.blobs.Open(ref)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(ref)))
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn("download interrupted", logging.Error(err))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
