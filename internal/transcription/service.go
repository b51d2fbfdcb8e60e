package transcription

import (
	"context"

	"meeting-minutes-go/internal/transcript"
)

// Result is the normalized speech-to-text response: either timed segments or
// a single opaque text blob when the provider returned no segment info.
type Result struct {
	Segments []transcript.Segment
	Text     string
}

// Service converts an audio file into a transcription result.
type Service interface {
	Transcribe(ctx context.Context, audioPath string) (Result, error)
}
