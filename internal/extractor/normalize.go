package extractor

import (
	"regexp"
	"strings"
)

// The extraction service is told to emit bare CSV but tends to wrap it
// in markdown code fences anyway. Normalize strips exactly that: an
// opening fence line (``` with an optional language tag) and a closing
// fence line, then trims whitespace and drops blank lines.
var fenceLine = regexp.MustCompile("^```[a-zA-Z0-9_-]*$")

// Normalize deterministically cleans raw service output into CSV lines.
// The result contains no blank lines and no fence markers; it may be
// empty when the service reported nothing.
func Normalize(raw string) []string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cleaned = append(cleaned, line)
	}
	if len(cleaned) == 0 {
		return nil
	}

	if fenceLine.MatchString(cleaned[0]) {
		cleaned = cleaned[1:]
	}
	if n := len(cleaned); n > 0 && fenceLine.MatchString(cleaned[n-1]) {
		cleaned = cleaned[:n-1]
	}
	if len(cleaned) == 0 {
		return nil
	}
	return cleaned
}
