package transcript

import "strings"

// Segment is one timed span of transcribed speech. Timed is false when the
// speech-to-text response carried no start/end offsets for the span.
type Segment struct {
	Start float64
	End   float64
	Text  string
	Timed bool
}

// FormatSegments merges segments into a human-readable transcript, one line
// per segment in input order. Timed segments render as
// "[HH:MM:SS - HH:MM:SS] text"; untimed segments render as bare text.
func FormatSegments(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		if seg.Timed {
			b.WriteString("[")
			b.WriteString(FormatTimestamp(seg.Start))
			b.WriteString(" - ")
			b.WriteString(FormatTimestamp(seg.End))
			b.WriteString("] ")
			b.WriteString(seg.Text)
		} else {
			b.WriteString(seg.Text)
		}
		b.WriteString("\n")
	}
	return b.String()
}
