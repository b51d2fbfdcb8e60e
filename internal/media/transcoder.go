package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// runner abstracts external command execution for testability.
type runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s failed: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

// Transcoder normalizes uploaded recordings to mp3 through a single
// configured ffmpeg binary.
type Transcoder struct {
	ffmpegPath string
	run        runner
}

func NewTranscoder(ffmpegPath string) *Transcoder {
	return &Transcoder{ffmpegPath: ffmpegPath, run: execRunner{}}
}

// Validate resolves the configured ffmpeg path at startup so a broken
// installation fails fast instead of on the first job.
func (t *Transcoder) Validate() error {
	if strings.TrimSpace(t.ffmpegPath) == "" {
		return fmt.Errorf("ffmpeg path is not configured")
	}
	if _, err := exec.LookPath(t.ffmpegPath); err != nil {
		return fmt.Errorf("ffmpeg not usable at %q: %w", t.ffmpegPath, err)
	}
	return nil
}

// Transcode converts the input media to an mp3 next to the system temp dir
// and returns its path. The caller owns the output file.
func (t *Transcoder) Transcode(ctx context.Context, inputPath string) (string, error) {
	out, err := os.CreateTemp("", "transcode-*.mp3")
	if err != nil {
		return "", fmt.Errorf("create output: %w", err)
	}
	outPath := out.Name()
	out.Close()

	if err := t.run.Run(ctx, t.ffmpegPath, buildArgs(inputPath, outPath)...); err != nil {
		_ = os.Remove(outPath)
		return "", err
	}

	info, err := os.Stat(outPath)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(outPath)
		return "", fmt.Errorf("conversion produced no output for %s", inputPath)
	}
	return outPath, nil
}

// buildArgs produces stereo 44.1kHz 128k mp3 output; container formats that
// tend to carry odd codecs additionally get best-quality VBR.
func buildArgs(inputPath, outPath string) []string {
	args := []string{
		"-y",
		"-i", inputPath,
		"-vn",
		"-ar", "44100",
		"-ac", "2",
		"-b:a", "128k",
	}

	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(inputPath), ".")) {
	case "webm", "m4a", "mp4":
		args = append(args, "-q:a", "0")
	}

	return append(args, outPath)
}
