package extract

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/coolbeans/statrec/pkg/docx"
)

// MissingLink reports a hyperlink present in the source document but absent
// from the generated XML, with every anchor text it appeared under.
type MissingLink struct {
	URL   string
	Texts []string
}

// CheckSourceCoverage re-walks every hyperlink in the document (markup and
// field-code forms) and reports those whose target does not appear in any
// <source> element of the generated XML. URLs are compared
// percent-decoded and case-folded, so an encoded URL in one place and its
// decoded form in the other never count as missing.
func CheckSourceCoverage(doc *docx.Document, xmlPath string) ([]*MissingLink, error) {
	sources, err := collectXMLSources(xmlPath)
	if err != nil {
		return nil, err
	}

	present := func(u string) bool {
		_, ok := sources[canonicalURL(u)]
		return ok
	}

	missing := make(map[string]*MissingLink)
	var order []string

	report := func(u, text string) {
		if text == "" {
			return
		}
		entry, ok := missing[u]
		if !ok {
			entry = &MissingLink{URL: u}
			missing[u] = entry
			order = append(order, u)
		}
		entry.Texts = append(entry.Texts, text)
	}

	seen := make(map[*docx.Cell]bool)
	for _, table := range doc.Tables {
		if len(table.Rows) == 0 || len(table.Rows[0].Cells) == 0 {
			continue
		}
		if len(table.Rows[0].Cells) == 1 || strings.Contains(table.Rows[0].Cells[0].Text(), "Table of Contents") {
			continue
		}

		for _, row := range table.Rows {
			for _, cell := range row.Cells {
				if seen[cell] {
					continue
				}
				seen[cell] = true

				for _, para := range cell.Paragraphs {
					for _, link := range para.Hyperlinks() {
						target, ok := doc.RelTarget(link.RelID)
						if !ok {
							continue
						}
						if link.Anchor != "" {
							target += "#" + link.Anchor
						}
						if !present(target) {
							report(target, link.Text())
						}
					}

					for _, instr := range para.FieldInstructions() {
						fieldURL, ok := fieldHyperlinkURL(instr)
						if !ok {
							continue
						}
						if !present(fieldURL) {
							report(strings.ToLower(fieldURL), para.Text())
						}
					}
				}
			}
		}
	}

	links := make([]*MissingLink, 0, len(order))
	for _, u := range order {
		links = append(links, missing[u])
	}
	return links, nil
}

// collectXMLSources gathers the text of every <source> element in the
// generated XML, at any depth, keyed by canonical URL.
func collectXMLSources(xmlPath string) (map[string]struct{}, error) {
	f, err := os.Open(xmlPath)
	if err != nil {
		return nil, fmt.Errorf("open generated xml: %w", err)
	}
	defer f.Close()

	sources := make(map[string]struct{})
	dec := xml.NewDecoder(f)
	inSource := false
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse generated xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "source" {
				inSource = true
				text.Reset()
			}
		case xml.CharData:
			if inSource {
				text.Write(t)
			}
		case xml.EndElement:
			if inSource && t.Name.Local == "source" {
				inSource = false
				if s := strings.TrimSpace(text.String()); s != "" {
					sources[canonicalURL(s)] = struct{}{}
				}
			}
		}
	}
	return sources, nil
}

// canonicalURL lowercases and percent-decodes a URL for comparison.
func canonicalURL(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	if decoded, err := url.PathUnescape(u); err == nil {
		return decoded
	}
	return u
}
