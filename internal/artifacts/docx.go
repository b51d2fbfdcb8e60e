package artifacts

import (
	"regexp"
	"strings"

	"github.com/gomutex/godocx"
)

const (
	bodyFont = "Calibri"
	bodySize = 11
)

var (
	reHeading  = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	reBullet   = regexp.MustCompile(`^[\-\*]\s+(.+)$`)
	reNumbered = regexp.MustCompile(`^\d+\.\s+(.+)$`)
)

// minutesToDocx renders markdown-ish minutes text to a styled docx file.
func minutesToDocx(title, minutes, outputPath string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return err
	}

	doc.AddParagraph("").AddText(title).Font(bodyFont).Size(14).Bold(true)

	for _, line := range strings.Split(minutes, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "---" {
			continue
		}

		if m := reHeading.FindStringSubmatch(trimmed); m != nil {
			doc.AddParagraph("").AddText(stripInline(m[2])).Font(bodyFont).Size(headingSize(len(m[1]))).Bold(true)
			continue
		}
		if m := reBullet.FindStringSubmatch(trimmed); m != nil {
			doc.AddParagraph("").AddText("• " + stripInline(m[1])).Font(bodyFont).Size(bodySize)
			continue
		}
		if m := reNumbered.FindStringSubmatch(trimmed); m != nil {
			doc.AddParagraph("").AddText(stripInline(trimmed)).Font(bodyFont).Size(bodySize)
			continue
		}

		doc.AddParagraph("").AddText(stripInline(trimmed)).Font(bodyFont).Size(bodySize)
	}

	return doc.SaveTo(outputPath)
}

func headingSize(level int) uint64 {
	switch level {
	case 1:
		return 14
	case 2:
		return 13
	default:
		return 12
	}
}

func stripInline(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	s = strings.ReplaceAll(s, "`", "")
	return s
}
