package extract

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/coolbeans/statrec/pkg/docx"
	"github.com/coolbeans/statrec/pkg/record"
	"github.com/coolbeans/statrec/pkg/vocab"
)

// officesMarker labels the cell holding a title's associated office list.
const officesMarker = "ACF Offices Associated"

// federalRecordsMarker separates the article hierarchy from its federal
// citation list. Structure past a missing marker cannot be located, so its
// absence aborts the run.
const federalRecordsMarker = "Associated Federal Records"

// Config carries the jurisdiction-specific labels and citation patterns the
// scanner needs. Labels vary per jurisdiction (a "Title" in one state is a
// "Chapter" in another); patterns parse that jurisdiction's citation lines.
type Config struct {
	State        string
	TitleName    string
	ArticleName  string
	SubtitleName string
	// PartName lists the part label plus an optional alternate used by some
	// records.
	PartName    []string
	SubPartName string

	// Category indicates the record groups titles under categories.
	Category bool
	// TitleContent indicates titles may carry content without a separate
	// article heading.
	TitleContent bool

	// StatutePattern splits a definition line into state code and defined
	// terms. StateCodePattern splits a citation line into label,
	// description, and state code.
	StatutePattern   *regexp.Regexp
	StateCodePattern *regexp.Regexp
}

// Scanner walks the document's tables and builds the title-keyed record set.
// One scanner serves one run; it owns no state beyond the shared record set
// it mutates.
type Scanner struct {
	doc     *docx.Document
	cfg     Config
	records *record.Set
	vocab   *vocab.Validator
}

// NewScanner creates a scanner that accumulates results into records.
func NewScanner(doc *docx.Document, cfg Config, records *record.Set, validator *vocab.Validator) *Scanner {
	return &Scanner{doc: doc, cfg: cfg, records: records, vocab: validator}
}

// skipTable reports whether a table is structural rather than record-bearing
// (single-column header, table of contents, or color legend).
func skipTable(table *docx.Table) bool {
	if len(table.Rows) == 0 || len(table.Rows[0].Cells) == 0 {
		return true
	}
	if len(table.Rows[0].Cells) == 1 {
		return true
	}
	first := table.Rows[0].Cells[0].Text()
	return strings.Contains(first, "Table of Contents") || strings.Contains(first, "Domain Color Coding")
}

// ScanTitles performs the title pass: every row whose first cell is empty is
// a title row. Returns the last title touched.
func (s *Scanner) ScanTitles() (*record.Title, error) {
	var last *record.Title

	for _, table := range s.doc.Tables {
		if skipTable(table) {
			continue
		}
		for _, row := range table.Rows {
			if strings.TrimSpace(row.Cells[0].Text()) != "" {
				continue
			}

			title, err := s.scanTitleRow(row)
			if err != nil {
				return nil, err
			}
			if title != nil {
				last = title
			}
		}
	}
	return last, nil
}

func (s *Scanner) scanTitleRow(row *docx.Row) (*record.Title, error) {
	// Rows normally hold [marker, title, offices] cells, but some documents
	// add extras; locate cells by content then, longest text winning.
	titleIdx, officeIdx := 1, 2
	if len(row.Cells) > 3 {
		titleIdx = longestMatchingCell(row.Cells, s.cfg.TitleName)
		officeIdx = longestMatchingCell(row.Cells, officesMarker)
		if titleIdx < 0 {
			return nil, nil
		}
	}
	if titleIdx >= len(row.Cells) {
		return nil, nil
	}

	titleCell := row.Cells[titleIdx]
	cellText := PrepCellText(titleCell.Text())

	ent := parseEntity(s.doc, titleCell, cellText, []string{s.cfg.TitleName})
	if ent == nil {
		return nil, nil
	}

	title := &record.Title{
		Name:   ent.Name,
		Number: ent.Number,
		Source: ent.Source,
	}
	s.records.Put(ent.Key, title)
	position := ent.Position

	if s.cfg.Category {
		// The category line always precedes the title line.
		if ent.StartIdx == 0 {
			fmt.Fprintln(os.Stderr, `WARNING: config indicates that categories are used, but none found in title cell`)
		} else {
			categoryName := strings.TrimSpace(cellText[ent.StartIdx-1])
			sourceText := categoryName
			if strings.Contains(categoryName, "Part") {
				if _, after, found := strings.Cut(categoryName, ": "); found {
					sourceText = after
				}
			}
			title.Category = &record.Category{
				Name:   categoryName,
				Source: ResolveSourceLink(s.doc, titleCell, sourceText, ""),
			}
			position = categoryName + " - " + position
		}
	}

	if officeIdx >= 0 && officeIdx < len(row.Cells) {
		officeText := PrepCellText(strings.ReplaceAll(row.Cells[officeIdx].Text(), officesMarker, ""))
		title.OfficesAssociated = s.vocab.Validate(officeText, vocab.Offices, position)
	}

	return title, nil
}

// ScanArticles performs the article pass: every row whose first cell carries
// the "Domain" marker holds one article. Returns the last title touched.
func (s *Scanner) ScanArticles() (*record.Title, error) {
	var last *record.Title

	for _, table := range s.doc.Tables {
		if skipTable(table) {
			continue
		}
		for _, row := range table.Rows {
			if !strings.Contains(row.Cells[0].Text(), "Domain") {
				continue
			}

			title, err := s.scanArticleRow(row)
			if err != nil {
				return nil, err
			}
			if title != nil {
				last = title
			}
		}
	}
	return last, nil
}

func (s *Scanner) scanArticleRow(row *docx.Row) (*record.Title, error) {
	overviewCell := row.Cells[0]
	overview := PrepCellText(overviewCell.Text())

	titleEnt := parseEntity(s.doc, overviewCell, overview, []string{s.cfg.TitleName})
	if titleEnt == nil {
		return nil, fmt.Errorf("unable to identify %s in article cell: %q", s.cfg.TitleName, strings.Join(overview, " | "))
	}

	title := s.records.Get(titleEnt.Key)
	if title == nil {
		return nil, fmt.Errorf("article references unknown title %q; check for any variation in the title name", titleEnt.Position)
	}

	position := titleEnt.Position
	if title.Category != nil {
		position = title.Category.Name + " - " + position
	}

	var articleEnt *entity
	if s.cfg.ArticleName != "" {
		articleEnt = parseEntity(s.doc, overviewCell, overview, []string{s.cfg.ArticleName})
	}

	foundTitleContent := false
	if articleEnt == nil {
		if !s.cfg.TitleContent {
			fmt.Fprintf(os.Stderr, "WARNING: failed to identify %s; review cell contents:\n\t%s\n", s.cfg.ArticleName, strings.Join(overview, "\n\t"))
			return nil, nil
		}
		// No separate article heading: the title carries the content.
		foundTitleContent = true
		articleEnt = titleEnt
	}

	article := &record.Article{
		TitleContent: foundTitleContent,
		Number:       articleEnt.Number,
		Name:         articleEnt.Name,
		Source:       articleEnt.Source,
	}

	// The domain name always sits directly under the marker line.
	if len(overview) > 1 {
		domain := s.vocab.Validate([]string{overview[1]}, vocab.Domains, position)
		if len(domain) == 0 {
			fmt.Fprintf(os.Stderr, "WARNING: incorrect domain; review cell contents: %s\n", strings.Join(overview[:2], " | "))
		} else {
			article.Domain = domain[0]
		}
	}

	if s.cfg.SubtitleName != "" {
		subtitleSlice := sliceBetween(overview, titleEnt.EndIdx+1, articleEnt.StartIdx)
		if len(subtitleSlice) > 0 {
			if sub := parseEntity(s.doc, overviewCell, subtitleSlice, []string{s.cfg.SubtitleName}); sub != nil {
				article.Subtitle = &record.NamePart{Number: sub.Number, Name: sub.Name, Source: sub.Source}
				if !strings.Contains(position, sub.Position) {
					position += " - " + sub.Position + " - " + articleEnt.Position
				}
			}
		}
	} else if !strings.Contains(position, articleEnt.Position) {
		position += " - " + articleEnt.Position
	}

	fedIdx := -1
	for idx, line := range overview {
		if strings.Contains(line, federalRecordsMarker) {
			fedIdx = idx
			break
		}
	}
	if fedIdx < 0 {
		return nil, fmt.Errorf("%q is missing at %s; check the source document and retry", federalRecordsMarker, position)
	}
	article.AssociatedFederalRecords = s.vocab.Validate(overview[fedIdx+1:], vocab.Federal, position)

	if len(s.cfg.PartName) > 0 {
		if err := s.scanPart(article, overviewCell, overview, articleEnt, fedIdx, &position); err != nil {
			return nil, err
		}
	}

	statutesCell, err := statuteCell(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", position, err)
	}
	statutes := PrepCellText(statutesCell.Text())

	defIdx, reqIdx := statuteSectionIndexes(statutes, position)

	if defIdx >= 0 {
		end := len(statutes)
		if reqIdx >= 0 {
			end = reqIdx
		}
		definitions, err := s.parseDefinitions(statutesCell, statutes[defIdx+1:end])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", position, err)
		}
		article.Definitions = definitions
	}

	if reqIdx >= 0 {
		requirements, err := s.parseRequirementBlocks(statutesCell, statutes[reqIdx+1:], position)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", position, err)
		}
		article.Requirements = requirements
	}

	// Vertically merged rows repeat their content; only keep the first copy.
	for _, existing := range title.Articles {
		if reflect.DeepEqual(existing, article) {
			return title, nil
		}
	}
	title.Articles = append(title.Articles, article)
	return title, nil
}

// scanPart extracts the optional part (and nested subPart) lying between the
// article heading and the federal records marker.
func (s *Scanner) scanPart(article *record.Article, cell *docx.Cell, overview []string, articleEnt *entity, fedIdx int, position *string) error {
	partSlice := sliceBetween(overview, articleEnt.EndIdx+1, fedIdx)
	if len(partSlice) == 0 {
		return nil
	}

	partEnt := parseEntity(s.doc, cell, partSlice, s.cfg.PartName)
	if partEnt == nil {
		return nil
	}
	article.Part = &record.Part{
		NamePart: record.NamePart{Number: partEnt.Number, Name: partEnt.Name, Source: partEnt.Source},
		AltName:  partEnt.AltName,
	}
	if !strings.Contains(*position, partEnt.Position) {
		*position += " - " + partEnt.Position
	}

	if s.cfg.SubPartName == "" {
		return nil
	}

	partEnd := indexOf(overview, partEnt.Name)
	if partEnd < 0 {
		return nil
	}
	subPartSlice := sliceBetween(overview, partEnd+1, fedIdx)
	if len(subPartSlice) == 0 {
		return nil
	}
	subEnt := parseEntity(s.doc, cell, subPartSlice, []string{s.cfg.SubPartName})
	if subEnt == nil {
		return nil
	}
	article.Part.SubPart = &record.NamePart{Number: subEnt.Number, Name: subEnt.Name, Source: subEnt.Source}
	if !strings.Contains(*position, subEnt.Position) {
		*position += " - " + subEnt.Position
	}
	return nil
}

// statuteCell returns the first cell to the right of the overview cell whose
// text differs from it. Horizontally merged layouts repeat the overview cell,
// so walk until the content changes.
func statuteCell(row *docx.Row) (*docx.Cell, error) {
	overviewText := PrepCellText(row.Cells[0].Text())
	for idx := 1; idx < len(row.Cells); idx++ {
		if !equalLines(PrepCellText(row.Cells[idx].Text()), overviewText) {
			return row.Cells[idx], nil
		}
	}
	return nil, fmt.Errorf("no statute cell found in article row")
}

// statuteSectionIndexes locates the definitions and requirements section
// headers within the statute cell's lines.
func statuteSectionIndexes(statutes []string, position string) (defIdx, reqIdx int) {
	defIdx, reqIdx = -1, -1

	defPrefixes := []string{"definitions related to", "definitions for "}
	reqPrefixes := []string{"requirements related ", "requirements for ", "requirements regarding ", "regulations regarding "}

	for idx, line := range statutes {
		if defIdx < 0 && startsWithAny(line, defPrefixes) {
			defIdx = idx
		}
		if reqIdx < 0 && startsWithAny(line, reqPrefixes) {
			reqIdx = idx
			// "Regulations" should read "Requirements" in the source; flag
			// for the document maintainers.
			if strings.Contains(line, "Regulations") {
				fmt.Fprintf(os.Stderr, "WARNING: found REGULATION heading at %s\n", position)
			}
		}
	}
	return defIdx, reqIdx
}

// parseDefinitions parses definition lines into statute records. The
// configured pattern is tried first, then a dash split. An unsplittable line
// is a structural failure.
func (s *Scanner) parseDefinitions(cell *docx.Cell, lines []string) ([]*record.Definition, error) {
	var definitions []*record.Definition

	for _, line := range lines {
		var stateCode, terms string

		if m := s.cfg.StatutePattern.FindStringSubmatch(line); len(m) >= 3 {
			stateCode, terms = m[1], m[2]
		} else {
			dash := matchDash(line)
			if dash == "" {
				return nil, fmt.Errorf("unable to split definition line: %q", line)
			}
			stateCode, terms, _ = strings.Cut(line, dash)
		}

		defn := &record.Definition{
			StateCode: strings.TrimSpace(stateCode),
			Source:    ResolveSourceLink(s.doc, cell, strings.TrimSpace(stateCode), ""),
		}
		for _, term := range strings.Split(terms, ",") {
			defn.DefinedTerms = append(defn.DefinedTerms, strings.TrimSpace(term))
		}
		definitions = append(definitions, defn)
	}
	return definitions, nil
}

// longestMatchingCell returns the index of the cell containing target with
// the longest text, or -1. Longest-text-wins resolves rows padded with extra
// cells.
func longestMatchingCell(cells []*docx.Cell, target string) int {
	bestIdx := -1
	bestLen := 0
	for idx, cell := range cells {
		text := cell.Text()
		if strings.Contains(text, target) && len(text) > bestLen {
			bestIdx = idx
			bestLen = len(text)
		}
	}
	return bestIdx
}

// sliceBetween returns lines[lo:hi] with both bounds clamped.
func sliceBetween(lines []string, lo, hi int) []string {
	if lo < 0 {
		lo = 0
	}
	if hi > len(lines) {
		hi = len(lines)
	}
	if lo >= hi {
		return nil
	}
	return lines[lo:hi]
}

func indexOf(lines []string, target string) int {
	for idx, line := range lines {
		if line == target {
			return idx
		}
	}
	return -1
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
