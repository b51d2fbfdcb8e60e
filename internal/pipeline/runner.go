package pipeline

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"meeting-minutes-go/internal/artifacts"
	"meeting-minutes-go/internal/jobs"
	"meeting-minutes-go/internal/logger"
	"meeting-minutes-go/internal/media"
	"meeting-minutes-go/internal/summarize"
	"meeting-minutes-go/internal/transcript"
	"meeting-minutes-go/internal/transcription"
)

// allowedExtensions and allowedContentTypes form the upload allow-list; a
// file is admitted when either its extension or its declared content type
// matches.
var allowedExtensions = map[string]bool{
	"mp3": true, "mp4": true, "mpeg": true, "mpga": true,
	"m4a": true, "wav": true, "webm": true,
}

var allowedContentTypes = map[string]bool{
	"audio/mpeg": true, "audio/mp3": true, "audio/wav": true,
	"video/mp4": true, "audio/mpga": true, "audio/m4a": true,
	"audio/webm": true, "video/webm": true, "audio/x-m4a": true,
	"audio/x-wav": true, "audio/x-mpeg": true, "audio/mp4": true,
}

// Runner owns the per-job background pipeline. Exactly one goroutine runs a
// given job, so job fields are written single-threaded; observers read
// through the store's snapshots.
type Runner struct {
	store       jobs.Store
	transcriber transcription.Service
	summarizer  summarize.Service
	transcoder  *media.Transcoder // nil disables the transcode pre-step
	artifacts   *artifacts.Writer // nil disables completion artifacts
	log         *logger.Logger

	uploadsDir       string
	longRunningAfter time.Duration
}

type Options struct {
	Store            jobs.Store
	Transcriber      transcription.Service
	Summarizer       summarize.Service
	Transcoder       *media.Transcoder
	Artifacts        *artifacts.Writer
	Log              *logger.Logger
	UploadsDir       string
	LongRunningAfter time.Duration
}

func NewRunner(opts Options) *Runner {
	return &Runner{
		store:            opts.Store,
		transcriber:      opts.Transcriber,
		summarizer:       opts.Summarizer,
		transcoder:       opts.Transcoder,
		artifacts:        opts.Artifacts,
		log:              opts.Log,
		uploadsDir:       opts.UploadsDir,
		longRunningAfter: opts.LongRunningAfter,
	}
}

// Submit validates the upload, persists it under the uploads directory,
// registers a queued job, and schedules the pipeline. The pipeline runs
// out-of-band; callers observe progress by polling the store.
func (r *Runner) Submit(filename, contentType string, src io.Reader) (jobs.Job, error) {
	if !Allowed(filename, contentType) {
		return jobs.Job{}, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, contentType)
	}

	if err := os.MkdirAll(r.uploadsDir, 0o755); err != nil {
		return jobs.Job{}, fmt.Errorf("ensure uploads dir: %w", err)
	}

	jobID := uuid.New().String()
	safeName := sanitizeFilename(filename)
	path := filepath.Join(r.uploadsDir, jobID+"_"+safeName)

	out, err := os.Create(path)
	if err != nil {
		return jobs.Job{}, fmt.Errorf("create upload file: %w", err)
	}
	written, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return jobs.Job{}, fmt.Errorf("persist upload: %w", err)
	}

	job := jobs.Job{
		ID:               jobID,
		OriginalFilename: safeName,
		SourceFilePath:   path,
		FileSizeMB:       float64(written) / (1024 * 1024),
		Status:           jobs.StatusQueued,
	}
	if err := r.store.Create(job); err != nil {
		_ = os.Remove(path)
		return jobs.Job{}, err
	}

	r.log.WithJob(jobID).WithField("file", safeName).WithField("size_mb", fmt.Sprintf("%.2f", job.FileSizeMB)).Info("job queued")
	go r.Run(jobID)

	return job, nil
}

// Run drives one job through the pipeline. It is the sole mutator of the
// job's transcript, minutes, and status after creation. Failures never
// propagate out; they land in the job's error field.
func (r *Runner) Run(jobID string) {
	log := r.log.WithJob(jobID)
	ctx := context.Background()

	job, err := r.store.Get(jobID)
	if err != nil {
		log.WithError(err).Error("job vanished before pipeline start")
		return
	}

	if _, err := os.Stat(job.SourceFilePath); err != nil {
		r.fail(jobID, &StageError{Stage: StageSource, Err: fmt.Errorf("source file missing: %s", job.SourceFilePath)})
		return
	}

	if err := r.store.Transition(jobID, jobs.StatusTranscribing); err != nil {
		log.WithError(err).Error("cannot start transcription stage")
		return
	}
	log.Info("transcribing")

	// Advisory only: flags a slow transcription for pollers, never cancels.
	var longTimer *time.Timer
	if r.longRunningAfter > 0 {
		longTimer = time.AfterFunc(r.longRunningAfter, func() {
			if err := r.store.Transition(jobID, jobs.StatusLongRunning); err == nil {
				log.Warn("transcription is taking longer than expected")
			}
		})
	}

	audioPath := job.SourceFilePath
	if r.transcoder != nil {
		converted, err := r.transcoder.Transcode(ctx, job.SourceFilePath)
		if err != nil {
			stopTimer(longTimer)
			r.fail(jobID, &StageError{Stage: StageTranscode, Err: err})
			return
		}
		defer os.Remove(converted)
		audioPath = converted
	}

	result, err := r.transcriber.Transcribe(ctx, audioPath)
	stopTimer(longTimer)
	if err != nil {
		r.fail(jobID, &StageError{Stage: StageTranscription, Err: err})
		return
	}

	text := result.Text
	if len(result.Segments) > 0 {
		text = transcript.FormatSegments(result.Segments)
	}
	if err := r.store.Update(jobID, func(j *jobs.Job) { j.Transcript = &text }); err != nil {
		log.WithError(err).Error("store transcript")
		return
	}
	if err := r.store.Transition(jobID, jobs.StatusGeneratingMins); err != nil {
		log.WithError(err).Error("cannot start minutes stage")
		return
	}
	log.Info("generating minutes")

	minutes, err := r.summarizer.Summarize(ctx, transcript.Clean(text))
	if err != nil {
		r.fail(jobID, &StageError{Stage: StageSummarization, Err: err})
		return
	}

	if err := r.store.Update(jobID, func(j *jobs.Job) { j.Minutes = &minutes }); err != nil {
		log.WithError(err).Error("store minutes")
		return
	}
	if err := r.store.Transition(jobID, jobs.StatusCompleted); err != nil {
		log.WithError(err).Error("cannot complete job")
		return
	}
	log.Info("completed")

	if r.artifacts != nil {
		if err := r.artifacts.Write(jobID, job.OriginalFilename, text, minutes); err != nil {
			log.WithError(err).Warn("write completion artifacts")
		}
	}
}

// fail records the failure on the job and moves it to the error state.
func (r *Runner) fail(jobID string, stageErr *StageError) {
	r.log.WithJob(jobID).WithError(stageErr).Error("pipeline failed")

	msg := stageErr.Error()
	if err := r.store.Update(jobID, func(j *jobs.Job) { j.Error = &msg }); err != nil {
		r.log.WithJob(jobID).WithError(err).Error("store error message")
		return
	}
	if err := r.store.Transition(jobID, jobs.StatusError); err != nil {
		r.log.WithJob(jobID).WithError(err).Error("transition to error")
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

// Allowed reports whether an upload passes the media-type allow-list by
// declared content type or by filename extension.
func Allowed(filename, contentType string) bool {
	if ct, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = ct
	}
	if allowedContentTypes[strings.ToLower(contentType)] {
		return true
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	return allowedExtensions[ext]
}

// sanitizeFilename keeps the upload path traversal-safe while preserving the
// original name as far as possible.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, name)
	if name == "" || name == "." {
		return "recording.bin"
	}
	return name
}
