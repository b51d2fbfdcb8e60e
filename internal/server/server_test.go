package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"meeting-minutes-go/internal/jobs"
	"meeting-minutes-go/internal/logger"
	"meeting-minutes-go/internal/pipeline"
	"meeting-minutes-go/internal/summarize"
	"meeting-minutes-go/internal/transcription"
)

type stubTranscriber struct {
	text string
	err  error
}

func (s stubTranscriber) Transcribe(ctx context.Context, audioPath string) (transcription.Result, error) {
	return transcription.Result{Text: s.text}, s.err
}

type stubSummarizer struct {
	minutes string
	err     error
}

func (s stubSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	return s.minutes, s.err
}

var _ transcription.Service = stubTranscriber{}
var _ summarize.Service = stubSummarizer{}

func newTestApp(t *testing.T, tr transcription.Service, sum summarize.Service) (*App, *jobs.MemoryStore) {
	t.Helper()
	store := jobs.NewMemoryStore()
	runner := pipeline.NewRunner(pipeline.Options{
		Store:       store,
		Transcriber: tr,
		Summarizer:  sum,
		Log:         logger.New(),
		UploadsDir:  t.TempDir(),
	})
	return NewApp(logger.New(), runner, store, 32<<20), store
}

func multipartUpload(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	fw, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &body, mw.FormDataContentType()
}

func TestRootAndHealth(t *testing.T) {
	app, _ := newTestApp(t, stubTranscriber{}, stubSummarizer{})

	for _, path := range []string{"/", "/healthz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		app.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("GET %s content type = %s", path, ct)
		}
	}
}

func TestUploadAcceptsMP3WithWrongContentType(t *testing.T) {
	app, store := newTestApp(t,
		stubTranscriber{text: "Hello World"},
		stubSummarizer{minutes: "## Meeting Overview"},
	)

	body, ct := multipartUpload(t, "standup.mp3", "application/octet-stream", []byte("audio"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "queued" {
		t.Errorf("status = %s", resp["status"])
	}
	if resp["job_id"] == "" {
		t.Fatal("missing job_id")
	}

	waitForStatus(t, store, resp["job_id"], jobs.StatusCompleted)
}

func TestUploadRejectsTextFile(t *testing.T) {
	app, store := newTestApp(t, stubTranscriber{}, stubSummarizer{})

	body, ct := multipartUpload(t, "notes.txt", "text/plain", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(resp["detail"], "Unsupported file type") {
		t.Errorf("detail = %q", resp["detail"])
	}
	if len(store.List()) != 0 {
		t.Error("rejected upload created a job")
	}
}

func TestUploadRequiresFileField(t *testing.T) {
	app, _ := newTestApp(t, stubTranscriber{}, stubSummarizer{})

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("not multipart"))
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	app, _ := newTestApp(t, stubTranscriber{}, stubSummarizer{})

	req := httptest.NewRequest(http.MethodGet, "/status/nope", nil)
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["detail"] != "Job not found" {
		t.Errorf("detail = %q", resp["detail"])
	}
}

// TestStatusNullFieldsBeforeCompletion pins the nullable-field contract.
func TestStatusNullFieldsBeforeCompletion(t *testing.T) {
	app, store := newTestApp(t, stubTranscriber{}, stubSummarizer{})
	if err := store.Create(jobs.Job{ID: "job-q", Status: jobs.StatusQueued}); err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/status/job-q", nil)
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, field := range []string{"transcript", "minutes", "error"} {
		if string(raw[field]) != "null" {
			t.Errorf("%s = %s, want null", field, raw[field])
		}
	}
	if string(raw["status"]) != `"queued"` {
		t.Errorf("status = %s", raw["status"])
	}
}

func TestStatusCompletedJob(t *testing.T) {
	app, store := newTestApp(t,
		stubTranscriber{text: "Hello World"},
		stubSummarizer{minutes: "## Meeting Overview"},
	)

	body, ct := multipartUpload(t, "standup.mp3", "audio/mpeg", []byte("audio"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("upload code = %d", rec.Code)
	}
	var up map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &up); err != nil {
		t.Fatalf("decode: %v", err)
	}

	waitForStatus(t, store, up["job_id"], jobs.StatusCompleted)

	req = httptest.NewRequest(http.MethodGet, "/status/"+up["job_id"], nil)
	rec = httptest.NewRecorder()
	app.Router().ServeHTTP(rec, req)

	var status statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Transcript == nil || *status.Transcript != "Hello World" {
		t.Errorf("transcript = %v", status.Transcript)
	}
	if status.Minutes == nil || *status.Minutes != "## Meeting Overview" {
		t.Errorf("minutes = %v", status.Minutes)
	}
	if status.Error != nil {
		t.Errorf("error = %v", *status.Error)
	}
}

func TestJobsExport(t *testing.T) {
	app, store := newTestApp(t, stubTranscriber{}, stubSummarizer{})
	if err := store.Create(jobs.Job{ID: "job-1", OriginalFilename: "a.mp3", Status: jobs.StatusQueued}); err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/jobs/export", nil)
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("content type = %s", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("empty export body")
	}
}

func TestJobsList(t *testing.T) {
	app, store := newTestApp(t, stubTranscriber{}, stubSummarizer{})
	for _, id := range []string{"a", "b"} {
		if err := store.Create(jobs.Job{ID: id, Status: jobs.StatusQueued}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var list []statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("len = %d, want 2", len(list))
	}
}

func waitForStatus(t *testing.T, store jobs.Store, id string, want jobs.Status) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			job, _ := store.Get(id)
			t.Fatalf("job %s stuck in %s, want %s (error=%v)", id, job.Status, want, job.Error)
		default:
			job, err := store.Get(id)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if job.Status == want {
				return
			}
			if job.Status.Terminal() {
				t.Fatalf("job %s terminal in %s, want %s (error=%v)", id, job.Status, want, job.Error)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
}
