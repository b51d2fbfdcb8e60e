package jobs

import "time"

// Status tracks where a job sits in its transcription pipeline.
type Status string

const (
	StatusQueued         Status = "queued"
	StatusTranscribing   Status = "transcribing"
	StatusLongRunning    Status = "transcribing_long_running"
	StatusGeneratingMins Status = "generating_minutes"
	StatusCompleted      Status = "completed"
	StatusError          Status = "error"
)

// Job is one submitted recording and its tracked progress. Transcript,
// Minutes and Error are nil until the owning pipeline stage sets them, each
// exactly once.
type Job struct {
	ID               string    `json:"id"`
	OriginalFilename string    `json:"original_filename"`
	SourceFilePath   string    `json:"source_file_path"`
	FileSizeMB       float64   `json:"file_size_mb"`
	Status           Status    `json:"status"`
	Transcript       *string   `json:"transcript"`
	Minutes          *string   `json:"minutes"`
	Error            *string   `json:"error"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Terminal reports whether no further transition may leave the status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// ValidTransition enforces the allowed state machine edges. The error state
// absorbs every non-terminal state; terminal states have no outgoing edges.
func ValidTransition(from, to Status) bool {
	switch from {
	case StatusQueued:
		return to == StatusTranscribing || to == StatusError
	case StatusTranscribing:
		return to == StatusLongRunning || to == StatusGeneratingMins || to == StatusError
	case StatusLongRunning:
		return to == StatusGeneratingMins || to == StatusError
	case StatusGeneratingMins:
		return to == StatusCompleted || to == StatusError
	default:
		return false
	}
}
