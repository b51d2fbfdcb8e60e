package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"meeting-minutes-go/internal/logger"
	"meeting-minutes-go/internal/pipeline"
)

// Watcher submits recordings dropped into a directory through the same
// pipeline as HTTP uploads. It is an optional ingestion path.
type Watcher struct {
	dir     string
	runner  *pipeline.Runner
	log     *logger.Logger
	watcher *fsnotify.Watcher

	// settleDelay gives the writer time to finish before the file is read.
	settleDelay time.Duration
}

func New(dir string, runner *pipeline.Runner, log *logger.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Watcher{
		dir:         dir,
		runner:      runner,
		log:         log,
		watcher:     fsw,
		settleDelay: 500 * time.Millisecond,
	}, nil
}

// Start blocks until the context is done, submitting each new allow-listed
// file as a job. Files failing the allow-list are ignored with a debug log.
func (w *Watcher) Start(ctx context.Context) error {
	w.log.WithField("dir", w.dir).Info("watch folder started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("watch folder stopped")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			if !pipeline.Allowed(event.Name, "") {
				w.log.WithField("file", event.Name).Debug("ignoring non-media file")
				continue
			}

			time.Sleep(w.settleDelay)
			w.submit(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.log.WithError(err).Error("watcher error")
		}
	}
}

func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) submit(path string) {
	f, err := os.Open(path)
	if err != nil {
		w.log.WithError(err).WithField("file", path).Error("open dropped file")
		return
	}
	defer f.Close()

	job, err := w.runner.Submit(filepath.Base(path), "", f)
	if err != nil {
		w.log.WithError(err).WithField("file", path).Error("submit dropped file")
		return
	}
	w.log.WithJob(job.ID).WithField("file", path).Info("dropped file queued")
}
