package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/coolbeans/statrec/pkg/docx"
)

// linkNormalizer strips the characters that vary between a citation string
// and its hyperlink anchor text: spaces, parentheses, zero-width characters,
// and curly apostrophes.
var linkNormalizer = strings.NewReplacer(
	" ", "",
	"(", "",
	")", "",
	"​", "",
	" ", "",
	"’", "'",
)

// normalizeLinkText prepares text for anchor comparison.
func normalizeLinkText(s string) string {
	return strings.ToLower(linkNormalizer.Replace(strings.TrimSpace(s)))
}

// ResolveSourceLink locates the hyperlink for targetText within cell and
// returns its absolute URL, with an "#anchor" fragment when the link carries
// an internal anchor.
//
// Two strategies run in order: explicit hyperlink markup whose normalized
// anchor text equals the normalized target (first match wins), then HYPERLINK
// field instructions in any paragraph whose run text contains the target.
// When precedingText is non-empty, markup matching only begins after a
// paragraph whose normalized text equals it.
//
// Returns "" when no link is found; a missing source link is reported on
// stderr but is never an error.
func ResolveSourceLink(doc *docx.Document, cell *docx.Cell, targetText, precedingText string) string {
	target := normalizeLinkText(targetText)
	preceding := normalizeLinkText(precedingText)
	precedingFound := preceding == ""

	// Strategy 1: hyperlink markup.
	for _, para := range cell.Paragraphs {
		paraText := normalizeLinkText(para.Text())

		if !precedingFound {
			if paraText != preceding {
				continue
			}
			// The gating paragraph itself is still eligible for matching.
			precedingFound = true
		}

		for _, link := range para.Hyperlinks() {
			if normalizeLinkText(link.Text()) != target {
				continue
			}
			url, ok := doc.RelTarget(link.RelID)
			if !ok {
				continue
			}
			if link.Anchor != "" {
				url += "#" + link.Anchor
			}
			return url
		}
	}

	// Strategy 2: HYPERLINK field instructions. Matching here is a plain
	// contains check over concatenated run text with spaces removed.
	fieldTarget := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(targetText)), " ", "")
	for _, para := range cell.Paragraphs {
		var b strings.Builder
		for _, item := range para.Items {
			if run, ok := item.(*docx.Run); ok {
				b.WriteString(strings.TrimSpace(run.Text))
			}
		}
		paraText := strings.ReplaceAll(strings.ToLower(b.String()), " ", "")
		paraText = strings.ReplaceAll(paraText, "’", "'")

		if !strings.Contains(paraText, fieldTarget) {
			continue
		}
		for _, instr := range para.FieldInstructions() {
			if url, ok := fieldHyperlinkURL(instr); ok {
				return url
			}
		}
	}

	fmt.Fprintf(os.Stderr, "WARNING: document does not appear to include a hyperlink for this string: %s\n", targetText)
	return ""
}

// fieldHyperlinkURL extracts the URL from a HYPERLINK field instruction,
// appending the \l switch value as an anchor fragment when present.
func fieldHyperlinkURL(instr string) (string, bool) {
	if !strings.Contains(instr, "HYPERLINK") {
		return "", false
	}
	parts := strings.Split(instr, `"`)
	if len(parts) < 2 {
		return "", false
	}
	url := parts[1]

	if idx := strings.Index(instr, `\l`); idx >= 0 {
		anchor := strings.TrimSpace(instr[idx+2:])
		if strings.HasPrefix(anchor, `"`) && strings.HasSuffix(anchor, `"`) && len(anchor) >= 2 {
			anchor = anchor[1 : len(anchor)-1]
		}
		url += "#" + anchor
	}
	return url, true
}
