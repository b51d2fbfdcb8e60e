package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"meeting-minutes-go/internal/artifacts"
	"meeting-minutes-go/internal/config"
	"meeting-minutes-go/internal/jobs"
	"meeting-minutes-go/internal/logger"
	"meeting-minutes-go/internal/media"
	"meeting-minutes-go/internal/pipeline"
	"meeting-minutes-go/internal/server"
	"meeting-minutes-go/internal/summarize"
	"meeting-minutes-go/internal/transcription"
	"meeting-minutes-go/internal/watcher"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "meeting-minutes-go").Info("starting service")

	cfg, err := config.Load(envOr("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	for _, dir := range []string{cfg.Paths.Uploads, cfg.Paths.Outputs} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.WithError(err).WithField("dir", dir).Fatal("cannot create directory")
		}
	}

	var transcoder *media.Transcoder
	if cfg.Transcode.Enabled {
		transcoder = media.NewTranscoder(cfg.Transcode.FFmpegPath)
		if err := transcoder.Validate(); err != nil {
			log.WithError(err).Fatal("transcoder unusable")
		}
		log.WithField("ffmpeg", cfg.Transcode.FFmpegPath).Info("transcoding enabled")
	}

	var summarizer summarize.Service
	switch cfg.Summarizer.Backend {
	case "gemini":
		summarizer = summarize.NewGeminiClient(cfg.Summarizer.GeminiAPIKey, cfg.Summarizer.GeminiModel)
	default:
		summarizer = summarize.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel)
	}
	log.WithField("backend", cfg.Summarizer.Backend).Info("summarizer configured")

	store := jobs.NewMemoryStore()
	runner := pipeline.NewRunner(pipeline.Options{
		Store:            store,
		Transcriber:      transcription.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.WhisperModel),
		Summarizer:       summarizer,
		Transcoder:       transcoder,
		Artifacts:        artifacts.NewWriter(cfg.Paths.Outputs),
		Log:              log,
		UploadsDir:       cfg.Paths.Uploads,
		LongRunningAfter: cfg.Pipeline.LongRunningAfter,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Paths.Watch != "" {
		w, err := watcher.New(cfg.Paths.Watch, runner, log)
		if err != nil {
			log.WithError(err).Fatal("cannot start watch folder")
		}
		go func() {
			defer w.Stop()
			if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("watch folder terminated")
			}
		}()
	}

	app := server.NewApp(log, runner, store, cfg.Server.MaxUploadMB<<20)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      app.Router(),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server terminated")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
		_ = srv.Close()
	}
	log.Info("server stopped")
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
