package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/coolbeans/statrec/pkg/docx"
	"github.com/coolbeans/statrec/pkg/record"
	"github.com/coolbeans/statrec/pkg/vocab"
)

var (
	entitiesPattern = regexp.MustCompile(`Who Law Applies To:(.*)`)
	// The authoring template is inconsistent about the tags label; accept the
	// observed variants.
	tagsPattern     = regexp.MustCompile(`(?:Tags|Tag\(s\)|Tags\(s\)):(.*)`)
	tagSplitPattern = regexp.MustCompile(`[;,:]`)
)

// parseRequirementBlocks splits the flat requirement text into fixed groups
// of three lines — citation, applicable entities, tags — and builds one
// requirement record per group. The final group may be shorter and is still
// processed. An unparseable citation line is a structural failure: state-code
// uniqueness downstream cannot be guaranteed past it.
func (s *Scanner) parseRequirementBlocks(cell *docx.Cell, lines []string, parentPosition string) ([]*record.Requirement, error) {
	var requirements []*record.Requirement

	for i := 0; i < len(lines); i += 3 {
		group := lines[i:min(i+3, len(lines))]

		label, description, stateCode, err := s.parseCitationLine(group[0])
		if err != nil {
			return nil, err
		}

		req := &record.Requirement{
			Label:       label,
			Description: description,
			StateCode:   stateCode,
			Source:      ResolveSourceLink(s.doc, cell, stateCode, ""),
		}

		position := fmt.Sprintf("%s - %s", parentPosition, stateCode)

		if len(group) > 1 {
			if m := entitiesPattern.FindStringSubmatch(group[1]); m != nil {
				for _, entity := range strings.Split(m[1], ";") {
					req.Entities = append(req.Entities, strings.TrimSpace(entity))
				}
			}
		}

		if len(group) > 2 {
			tagsText := ""
			if m := tagsPattern.FindStringSubmatch(group[2]); m != nil {
				tagsText = m[1]
			} else if _, after, found := strings.Cut(group[2], ":"); found {
				tagsText = after
			}

			var tags []string
			for _, tag := range tagSplitPattern.Split(tagsText, -1) {
				tags = append(tags, strings.TrimSpace(tag))
			}
			req.Tags = s.vocab.Validate(tags, vocab.Terms, position)
		}

		requirements = append(requirements, req)
	}

	return requirements, nil
}

// parseCitationLine splits a citation line into label, description, and state
// code. The configured pattern is tried first; on failure the line is split
// on the first dash-like separator and the remainder on its last " (" to
// recover a trailing parenthesized state code.
func (s *Scanner) parseCitationLine(line string) (label, description, stateCode string, err error) {
	if m := s.cfg.StateCodePattern.FindStringSubmatch(line); len(m) >= 4 {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), strings.TrimSpace(m[3]), nil
	}

	dash := matchDash(line)
	if dash == "" {
		return "", "", "", fmt.Errorf("unable to parse citation line: %q", line)
	}

	rawLabel, remainder, _ := strings.Cut(line, dash)
	idx := strings.LastIndex(remainder, " (")
	if idx < 0 {
		return "", "", "", fmt.Errorf("unable to parse citation line: %q", line)
	}

	label = strings.TrimSpace(rawLabel)
	description = strings.TrimSpace(remainder[:idx])
	stateCode = strings.TrimSpace(strings.ReplaceAll(remainder[idx+2:], ")", ""))
	return label, description, stateCode, nil
}
