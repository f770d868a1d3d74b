// Package extract recovers the nested Title→Article→Requirement record
// structure from the table layout of an authored Word document. The layout is
// recognized purely from text patterns and cell adjacency, so the parsers
// here are deliberately conservative: structural markers that cannot be found
// abort the run, while content-level issues are audited and worked around.
package extract

import "strings"

// cellTextReplacer normalizes curly quotes, zero-width characters, and bullet
// glyphs that the authoring tool inserts.
var cellTextReplacer = strings.NewReplacer(
	"’", "'",
	"“", `"`,
	"”", `"`,
	"​", "",
	" ", " ",
	"•", "",
	"⦁", "",
)

// PrepCellText cleans a cell's raw text and splits it into trimmed,
// non-blank lines. Stray lines holding only a colon are dropped.
func PrepCellText(raw string) []string {
	cleaned := cellTextReplacer.Replace(raw)

	var lines []string
	for _, line := range strings.Split(cleaned, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == ":" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// dashVariants lists the separator characters used in citation lines, in
// match priority order.
var dashVariants = []string{" – ", "–", " - ", "-", "—"}

// matchDash returns the first dash-like separator present in s, or "".
func matchDash(s string) string {
	for _, dash := range dashVariants {
		if strings.Contains(s, dash) {
			return dash
		}
	}
	return ""
}
