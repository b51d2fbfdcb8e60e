package media

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
)

type fakeRunner struct {
	name string
	args []string
	err  error
	// write simulates ffmpeg producing the output file
	write bool
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) error {
	f.name = name
	f.args = args
	if f.err != nil {
		return f.err
	}
	if f.write {
		return os.WriteFile(args[len(args)-1], []byte("mp3-bytes"), 0o644)
	}
	return nil
}

func TestBuildArgs(t *testing.T) {
	args := buildArgs("in.wav", "out.mp3")
	joined := strings.Join(args, " ")
	for _, want := range []string{"-i in.wav", "-vn", "-ar 44100", "-ac 2", "-b:a 128k"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
	if args[len(args)-1] != "out.mp3" {
		t.Errorf("output path not last: %v", args)
	}
	if strings.Contains(joined, "-q:a") {
		t.Errorf("wav should not get VBR flag: %q", joined)
	}

	if joined := strings.Join(buildArgs("clip.webm", "out.mp3"), " "); !strings.Contains(joined, "-q:a 0") {
		t.Errorf("webm should get VBR flag: %q", joined)
	}
}

func TestTranscodeSuccess(t *testing.T) {
	fake := &fakeRunner{write: true}
	tr := &Transcoder{ffmpegPath: "ffmpeg", run: fake}

	out, err := tr.Transcode(context.Background(), "meeting.mp4")
	if err != nil {
		t.Fatalf("transcode: %v", err)
	}
	defer os.Remove(out)

	if fake.name != "ffmpeg" {
		t.Errorf("command = %s", fake.name)
	}
	if !strings.HasSuffix(out, ".mp3") {
		t.Errorf("output = %s, want .mp3", out)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestTranscodeCommandFailure(t *testing.T) {
	fake := &fakeRunner{err: fmt.Errorf("codec not supported")}
	tr := &Transcoder{ffmpegPath: "ffmpeg", run: fake}

	if _, err := tr.Transcode(context.Background(), "meeting.mp4"); err == nil {
		t.Fatal("expected error")
	}
}

func TestTranscodeEmptyOutput(t *testing.T) {
	fake := &fakeRunner{} // succeeds but writes nothing
	tr := &Transcoder{ffmpegPath: "ffmpeg", run: fake}

	if _, err := tr.Transcode(context.Background(), "meeting.mp4"); err == nil {
		t.Fatal("expected error for empty output")
	}
}

func TestValidateRequiresPath(t *testing.T) {
	if err := NewTranscoder("").Validate(); err == nil {
		t.Fatal("expected error for empty path")
	}
	if err := NewTranscoder("/nonexistent/ffmpeg-binary").Validate(); err == nil {
		t.Fatal("expected error for missing binary")
	}
}
