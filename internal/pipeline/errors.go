package pipeline

import (
	"errors"
	"fmt"
)

// ErrUnsupportedMediaType rejects uploads outside the audio/video allow-list.
var ErrUnsupportedMediaType = errors.New("unsupported media type")

// Pipeline stages, used to attribute asynchronous failures.
const (
	StageSource        = "source file check"
	StageTranscode     = "transcode"
	StageTranscription = "transcription"
	StageSummarization = "minutes generation"
)

// StageError attributes a pipeline failure to the stage that raised it. Its
// string form becomes the job's error message.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
