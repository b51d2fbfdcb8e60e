package transcript

import "fmt"

// FormatTimestamp renders an elapsed-seconds offset as HH:MM:SS with
// zero-padded fields. Seconds must be non-negative and finite.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		panic(fmt.Sprintf("transcript: negative timestamp %f", seconds))
	}

	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}
