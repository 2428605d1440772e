package ocr

import "strings"

// JoinLines reflows OCR output for Japanese text: every line is trimmed,
// consecutive non-empty lines are joined with no separator, and a run of
// blank lines becomes one paragraph break.
func JoinLines(text string) string {
	var b strings.Builder
	pendingBreak := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			pendingBreak = b.Len() > 0
			continue
		}
		if pendingBreak {
			b.WriteByte('\n')
			pendingBreak = false
		}
		b.WriteString(line)
	}
	return b.String()
}
