package document

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// SplitParagraphs splits text on blank lines. Each paragraph is trimmed,
// has its inner whitespace collapsed to single spaces and is NFC
// normalized; empty paragraphs are dropped.
func SplitParagraphs(text string) []string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var out []string
	for _, p := range paragraphBreak.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, whitespaceRun.ReplaceAllString(p, " "))
	}
	return out
}
