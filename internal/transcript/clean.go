package transcript

import "strings"

// Clean strips bracketed timestamp prefixes and blank lines from a formatted
// transcript, leaving plain continuous text for summarization. Lines that
// open a bracket but never close it are kept verbatim (trimmed only), so a
// malformed timestamp never loses speech. Clean is idempotent.
func Clean(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") {
			if _, rest, ok := strings.Cut(line, "]"); ok {
				line = strings.TrimSpace(rest)
				if line == "" {
					continue
				}
			}
		}

		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
