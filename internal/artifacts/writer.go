package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Writer persists completion artifacts for a finished job: the formatted
// transcript as .txt and the minutes as .docx, both under the outputs
// directory keyed by job id. Artifact failures are reported but never fail
// the job.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

func (w *Writer) Write(jobID, originalFilename, transcript, minutes string) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create outputs dir: %w", err)
	}

	base := jobID + "_" + strings.TrimSuffix(originalFilename, filepath.Ext(originalFilename))

	txtPath := filepath.Join(w.dir, base+"_transcript.txt")
	if err := os.WriteFile(txtPath, []byte(transcript), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}

	docxPath := filepath.Join(w.dir, base+"_minutes.docx")
	if err := minutesToDocx(originalFilename, minutes, docxPath); err != nil {
		return fmt.Errorf("write minutes: %w", err)
	}
	return nil
}
