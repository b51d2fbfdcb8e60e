package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"meeting-minutes-go/internal/jobs"
	"meeting-minutes-go/internal/logger"
	"meeting-minutes-go/internal/pipeline"
	"meeting-minutes-go/internal/report"
)

// App wires the HTTP boundary over the pipeline runner and job store.
type App struct {
	log            *logger.Logger
	router         *chi.Mux
	runner         *pipeline.Runner
	store          jobs.Store
	maxUploadBytes int64
}

func NewApp(log *logger.Logger, runner *pipeline.Runner, store jobs.Store, maxUploadBytes int64) *App {
	a := &App{
		log:            log,
		router:         chi.NewRouter(),
		runner:         runner,
		store:          store,
		maxUploadBytes: maxUploadBytes,
	}
	a.registerRoutes()
	return a
}

func (a *App) Router() http.Handler {
	return a.router
}

func (a *App) registerRoutes() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.RealIP)
	a.router.Use(middleware.Recoverer)

	a.router.Get("/", a.root)
	a.router.Get("/healthz", a.health)
	a.router.Post("/upload", a.upload)
	a.router.Get("/status/{job_id}", a.status)
	a.router.Get("/jobs", a.listJobs)
	a.router.Get("/jobs/export", a.exportJobs)
}

func (a *App) root(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Meeting Recordings to Minutes API",
	})
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// statusResponse is the poll contract; the three result fields stay null
// until their stage commits them.
type statusResponse struct {
	JobID      string      `json:"job_id"`
	Status     jobs.Status `json:"status"`
	Transcript *string     `json:"transcript"`
	Minutes    *string     `json:"minutes"`
	Error      *string     `json:"error"`
}

func (a *App) upload(w http.ResponseWriter, r *http.Request) {
	reqLog := a.log.WithRequest(r).WithField("handler", "upload")

	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		reqLog.WithField("error", err.Error()).Warn("invalid multipart upload")
		a.respondError(w, http.StatusBadRequest, "a multipart file field named 'file' is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	job, err := a.runner.Submit(header.Filename, contentType, file)
	if errors.Is(err, pipeline.ErrUnsupportedMediaType) {
		reqLog.WithField("content_type", contentType).WithField("filename", header.Filename).Warn("unsupported media type")
		a.respondError(w, http.StatusBadRequest, fmt.Sprintf(
			"Unsupported file type: %s. Supported formats: mp3, mp4, mpeg, mpga, m4a, wav, and webm.", contentType))
		return
	}
	if err != nil {
		reqLog.WithField("error", err.Error()).Error("upload failed")
		a.respondError(w, http.StatusInternalServerError, "failed to accept upload")
		return
	}

	reqLog.WithField("job_id", job.ID).Info("upload accepted")
	a.respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": string(job.Status),
	})
}

func (a *App) status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")

	job, err := a.store.Get(jobID)
	if errors.Is(err, jobs.ErrNotFound) {
		a.respondError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		a.log.WithRequest(r).WithField("error", err.Error()).Error("status lookup failed")
		a.respondError(w, http.StatusInternalServerError, "failed to read job")
		return
	}

	a.respondJSON(w, http.StatusOK, statusResponse{
		JobID:      job.ID,
		Status:     job.Status,
		Transcript: job.Transcript,
		Minutes:    job.Minutes,
		Error:      job.Error,
	})
}

func (a *App) listJobs(w http.ResponseWriter, r *http.Request) {
	list := a.store.List()
	out := make([]statusResponse, 0, len(list))
	for _, job := range list {
		out = append(out, statusResponse{
			JobID:      job.ID,
			Status:     job.Status,
			Transcript: job.Transcript,
			Minutes:    job.Minutes,
			Error:      job.Error,
		})
	}
	a.respondJSON(w, http.StatusOK, out)
}

func (a *App) exportJobs(w http.ResponseWriter, r *http.Request) {
	f, err := report.JobsWorkbook(a.store.List())
	if err != nil {
		a.log.WithRequest(r).WithField("error", err.Error()).Error("jobs export failed")
		a.respondError(w, http.StatusInternalServerError, "failed to build export")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="jobs.xlsx"`)
	if err := f.Write(w); err != nil {
		a.log.WithRequest(r).WithField("error", err.Error()).Error("jobs export write failed")
	}
}

func (a *App) respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.log.WithError(err).Error("failed to encode json")
	}
}

func (a *App) respondError(w http.ResponseWriter, code int, detail string) {
	a.respondJSON(w, code, map[string]string{"detail": detail})
}
