package extract

import (
	"strings"

	"github.com/coolbeans/statrec/pkg/docx"
)

// entity is a named hierarchy level (title, article, subtitle, part, or
// subPart) located inside a cell's line list.
type entity struct {
	// Position is the label line itself, used in audit breadcrumbs.
	Position string
	// Name is the line following the label line.
	Name   string
	Source string
	// Number is the label line's trailing token after the first space; empty
	// when the jurisdiction omits numbering.
	Number string
	// AltName records the alternate label when the second of two configured
	// labels matched.
	AltName string
	// Key is the derived slug used to key titles in the record set.
	Key string
	// StartIdx and EndIdx delimit the label and name lines in the scanned
	// line list.
	StartIdx int
	EndIdx   int
}

// parseEntity scans lines for the first line starting with one of the
// configured labels. The following line is the entity's name and the label
// line's remainder is its displayed number. The name's source link is
// resolved within cell, gated on the label line. Returns nil when no label
// line is found or the label line has no following line.
func parseEntity(doc *docx.Document, cell *docx.Cell, lines []string, labels []string) *entity {
	for idx, line := range lines {
		if !startsWithAny(line, labels) {
			continue
		}
		if idx+1 >= len(lines) {
			return nil
		}

		ent := &entity{
			Position: strings.TrimSpace(line),
			Name:     lines[idx+1],
			Source:   ResolveSourceLink(doc, cell, lines[idx+1], line),
			StartIdx: idx,
			EndIdx:   idx + 1,
		}

		if _, number, found := strings.Cut(line, " "); found {
			ent.Number = strings.TrimSpace(number)
		}

		// A bare label line means the jurisdiction omits numbering; fold the
		// name into the position so breadcrumbs and keys stay distinct.
		if strings.EqualFold(ent.Position, labels[0]) {
			ent.Position = ent.Position + " " + ent.Name
			ent.Key = ent.Position
		} else {
			ent.Key = strings.ToLower(strings.ReplaceAll(ent.Position+"-"+ent.Name, " ", ""))
		}

		if len(labels) > 1 && strings.Contains(ent.Position, labels[1]) {
			ent.AltName = labels[1]
		}

		return ent
	}
	return nil
}

// startsWithAny reports whether line starts with any label,
// case-insensitively.
func startsWithAny(line string, labels []string) bool {
	lower := strings.ToLower(line)
	for _, label := range labels {
		if strings.HasPrefix(lower, strings.ToLower(label)) {
			return true
		}
	}
	return false
}
