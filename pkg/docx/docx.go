// Package docx provides read-only access to the parts of a Word (OOXML)
// document that the record extraction pipeline depends on: top-level tables,
// their cells and paragraphs, hyperlink markup, HYPERLINK field instructions,
// and the relationship table that maps relationship ids to external URLs.
//
// Only word/document.xml and word/_rels/document.xml.rels are parsed. Styles,
// numbering, and document properties are ignored.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// Document is a parsed DOCX document.
type Document struct {
	// Tables holds the document's top-level tables in document order.
	Tables []*Table

	rels map[string]string
}

// Table is a table in the document body.
type Table struct {
	Rows []*Row
}

// Row is a table row. Cells spanning multiple grid columns are repeated once
// per spanned column, so positional cell access behaves the same for merged
// and unmerged layouts.
type Row struct {
	Cells []*Cell
}

// Cell is a single table cell.
type Cell struct {
	Paragraphs []*Paragraph
}

// Paragraph is a paragraph within a cell. Runs and hyperlinks are kept in
// document order so callers can reason about text adjacency.
type Paragraph struct {
	Items []ParagraphItem
}

// ParagraphItem is either a *Run or a *Hyperlink.
type ParagraphItem interface {
	isParagraphItem()
}

// Run is a contiguous run of text. Instr carries the text of any embedded
// field instruction (w:instrText), used by HYPERLINK field codes.
type Run struct {
	Text  string
	Instr string
}

func (*Run) isParagraphItem() {}

// Hyperlink is explicit hyperlink markup wrapping one or more runs.
type Hyperlink struct {
	RelID  string
	Anchor string
	Runs   []*Run
}

func (*Hyperlink) isParagraphItem() {}

// Open reads and parses the DOCX file at path.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	doc, err := Read(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// Read parses DOCX content from an in-memory zip archive.
func Read(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read docx archive: %w", err)
	}

	doc := &Document{rels: make(map[string]string)}

	relData, err := zipEntry(zr, "word/_rels/document.xml.rels")
	if err == nil {
		if err := doc.parseRelationships(relData); err != nil {
			return nil, fmt.Errorf("parse relationships: %w", err)
		}
	}

	bodyData, err := zipEntry(zr, "word/document.xml")
	if err != nil {
		return nil, err
	}
	if err := doc.parseBody(bodyData); err != nil {
		return nil, fmt.Errorf("parse document body: %w", err)
	}

	return doc, nil
}

// RelTarget resolves a relationship id to its target URL.
func (d *Document) RelTarget(id string) (string, bool) {
	target, ok := d.rels[id]
	return target, ok
}

// Text returns the cell's full text, paragraphs joined by newlines. Hyperlink
// anchor text is included in paragraph text.
func (c *Cell) Text() string {
	parts := make([]string, 0, len(c.Paragraphs))
	for _, p := range c.Paragraphs {
		parts = append(parts, p.Text())
	}
	return strings.Join(parts, "\n")
}

// Text returns the concatenated text of all runs in the paragraph, including
// runs nested inside hyperlink markup.
func (p *Paragraph) Text() string {
	var b strings.Builder
	for _, item := range p.Items {
		switch v := item.(type) {
		case *Run:
			b.WriteString(v.Text)
		case *Hyperlink:
			for _, r := range v.Runs {
				b.WriteString(r.Text)
			}
		}
	}
	return b.String()
}

// Hyperlinks returns the paragraph's hyperlink markup in document order.
func (p *Paragraph) Hyperlinks() []*Hyperlink {
	var links []*Hyperlink
	for _, item := range p.Items {
		if h, ok := item.(*Hyperlink); ok {
			links = append(links, h)
		}
	}
	return links
}

// FieldInstructions returns the text of every embedded field instruction in
// the paragraph, in document order.
func (p *Paragraph) FieldInstructions() []string {
	var instrs []string
	for _, item := range p.Items {
		if r, ok := item.(*Run); ok && r.Instr != "" {
			instrs = append(instrs, r.Instr)
		}
	}
	return instrs
}

// Text returns the hyperlink's visible anchor text.
func (h *Hyperlink) Text() string {
	var b strings.Builder
	for _, r := range h.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

func zipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", name, err)
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("missing required entry: %s", name)
}

type relationshipsXML struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

func (d *Document) parseRelationships(data []byte) error {
	var rels relationshipsXML
	if err := xml.Unmarshal(data, &rels); err != nil {
		return err
	}
	for _, rel := range rels.Relationships {
		d.rels[rel.ID] = rel.Target
	}
	return nil
}

// parseBody walks word/document.xml collecting top-level tables. Tables
// nested inside cells are not descended into, matching how the authoring
// template lays out records.
func (d *Document) parseBody(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		// parseTable consumes the whole subtree, so any tbl seen here is a
		// top-level table.
		if t, ok := tok.(xml.StartElement); ok && t.Name.Local == "tbl" {
			table, err := parseTable(dec)
			if err != nil {
				return err
			}
			d.Tables = append(d.Tables, table)
		}
	}
}

// parseTable consumes tokens until the table's end element.
func parseTable(dec *xml.Decoder) (*Table, error) {
	table := &Table{}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "tr" {
				row, err := parseRow(dec)
				if err != nil {
					return nil, err
				}
				table.Rows = append(table.Rows, row)
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return table, nil
}

func parseRow(dec *xml.Decoder) (*Row, error) {
	row := &Row{}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "tc" {
				cell, span, err := parseCell(dec)
				if err != nil {
					return nil, err
				}
				// Repeat spanned cells so positional access matches the
				// table grid rather than the physical cell list.
				for i := 0; i < span; i++ {
					row.Cells = append(row.Cells, cell)
				}
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return row, nil
}

func parseCell(dec *xml.Decoder) (*Cell, int, error) {
	cell := &Cell{}
	span := 1
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, 0, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				para, err := parseParagraph(dec)
				if err != nil {
					return nil, 0, err
				}
				cell.Paragraphs = append(cell.Paragraphs, para)
				continue
			case "gridSpan":
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						var n int
						if _, err := fmt.Sscanf(attr.Value, "%d", &n); err == nil && n > 1 {
							span = n
						}
					}
				}
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return cell, span, nil
}

func parseParagraph(dec *xml.Decoder) (*Paragraph, error) {
	para := &Paragraph{}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "r":
				run, err := parseRun(dec)
				if err != nil {
					return nil, err
				}
				para.Items = append(para.Items, run)
				continue
			case "hyperlink":
				link, err := parseHyperlink(dec, t)
				if err != nil {
					return nil, err
				}
				para.Items = append(para.Items, link)
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return para, nil
}

func parseRun(dec *xml.Decoder) (*Run, error) {
	run := &Run{}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				text, err := elementText(dec)
				if err != nil {
					return nil, err
				}
				run.Text += text
				continue
			case "instrText":
				text, err := elementText(dec)
				if err != nil {
					return nil, err
				}
				run.Instr += text
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return run, nil
}

func parseHyperlink(dec *xml.Decoder, start xml.StartElement) (*Hyperlink, error) {
	link := &Hyperlink{}
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "id":
			link.RelID = attr.Value
		case "anchor":
			link.Anchor = attr.Value
		}
	}

	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "r" {
				run, err := parseRun(dec)
				if err != nil {
					return nil, err
				}
				link.Runs = append(link.Runs, run)
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return link, nil
}

// elementText consumes a started element and returns its character data.
func elementText(dec *xml.Decoder) (string, error) {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			b.Write(t)
		}
	}
	return b.String(), nil
}
