package record

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Meta carries the jurisdiction-level labels emitted at the top of the XML
// record.
type Meta struct {
	State        string
	ArticleName  string
	TitleName    string
	PartName     []string
	SubPartName  string
	SubtitleName string

	// Date stamps the output filename; the current date is used when zero.
	Date time.Time
}

// fileStem returns the lowercased, underscore-joined state name used in
// output filenames.
func (m Meta) fileStem() string {
	return strings.ReplaceAll(strings.ToLower(m.State), " ", "_")
}

// datestamp returns the YYYYMMDD date embedded in output filenames.
func (m Meta) datestamp() string {
	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}
	return date.Format("20060102")
}

// WriteXMLFile serializes the record set to {state}_{YYYYMMDD}.xml in outDir
// and returns the written path.
func WriteXMLFile(meta Meta, set *Set, outDir string) (string, error) {
	path := filepath.Join(outDir, fmt.Sprintf("%s_%s.xml", meta.fileStem(), meta.datestamp()))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create xml file: %w", err)
	}
	defer f.Close()

	if err := WriteXML(f, meta, set); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// WriteXML serializes the record set in the archive's fixed element order:
// jurisdiction labels first, then titles in encounter order. Consecutive
// titles sharing a category nest under a single category element.
func WriteXML(w io.Writer, meta Meta, set *Set) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	x := &xmlWriter{enc: enc}

	root := xml.StartElement{
		Name: xml.Name{Local: "record"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns:xsi"}, Value: "http://www.w3.org/2001/XMLSchema-instance"},
			{Name: xml.Name{Local: "xsi:noNamespaceSchemaLocation"}, Value: "../schema_final.xsd"},
		},
	}
	x.start(root)

	x.text("state", meta.State)
	x.text("articleName", meta.ArticleName)
	x.text("titleName", meta.TitleName)
	if len(meta.PartName) > 0 {
		x.text("partName", meta.PartName[0])
	}
	if meta.SubPartName != "" {
		x.text("subPartName", meta.SubPartName)
	}
	if meta.SubtitleName != "" {
		x.text("subtitleName", meta.SubtitleName)
	}

	// Track the open category so consecutive titles sharing one nest under a
	// single element.
	currentCategory := ""
	categoryOpen := false

	closeCategory := func() {
		if categoryOpen {
			x.end("category")
			categoryOpen = false
		}
	}

	for _, title := range set.Titles() {
		if title.Category != nil {
			if title.Category.Name != currentCategory {
				closeCategory()
				x.start(elem("category"))
				x.text("name", title.Category.Name)
				if title.Category.Source != "" {
					x.text("source", title.Category.Source)
				}
				currentCategory = title.Category.Name
				categoryOpen = true
			}
		} else {
			closeCategory()
			currentCategory = ""
		}

		x.start(elem("title"))
		x.text("number", title.Number)
		x.text("name", title.Name)
		x.text("source", title.Source)

		x.start(elem("officesAssociated"))
		for _, office := range title.OfficesAssociated {
			x.text("office", office)
		}
		x.end("officesAssociated")

		for _, article := range title.Articles {
			writeArticle(x, article)
		}

		x.end("title")
	}
	closeCategory()

	x.end("record")
	if x.err != nil {
		return x.err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	// Trailing newline after the closing tag.
	_, err := io.WriteString(w, "\n")
	return err
}

func writeArticle(x *xmlWriter, article *Article) {
	elemName := "article"
	if article.TitleContent {
		elemName = "titleContent"
	}
	x.start(elem(elemName))
	x.text("domain", article.Domain)

	if article.Subtitle != nil {
		x.start(elem("subtitle"))
		x.text("number", article.Subtitle.Number)
		x.text("name", article.Subtitle.Name)
		x.text("source", article.Subtitle.Source)
		x.end("subtitle")
	}

	// A titleContent entry carries only the domain; it has no heading of its
	// own.
	if !article.TitleContent {
		x.text("number", article.Number)
		x.text("name", article.Name)
		x.text("source", article.Source)
	}

	if article.Part != nil {
		x.start(elem("part"))
		x.text("number", article.Part.Number)
		x.text("name", article.Part.Name)
		x.text("source", article.Part.Source)
		if article.Part.AltName != "" {
			x.text("altName", article.Part.AltName)
		}
		if article.Part.SubPart != nil {
			x.start(elem("subPart"))
			x.text("number", article.Part.SubPart.Number)
			x.text("name", article.Part.SubPart.Name)
			x.text("source", article.Part.SubPart.Source)
			x.end("subPart")
		}
		x.end("part")
	}

	x.start(elem("associatedFederalRecords"))
	for _, rec := range article.AssociatedFederalRecords {
		x.text("federal", rec)
	}
	x.end("associatedFederalRecords")

	if len(article.Definitions) > 0 {
		x.start(elem("definitions"))
		for _, defn := range article.Definitions {
			x.start(elem("statute"))
			x.text("stateCode", defn.StateCode)
			x.text("source", defn.Source)
			x.start(elem("definedTerms"))
			for _, term := range defn.DefinedTerms {
				x.text("definedTerm", term)
			}
			x.end("definedTerms")
			x.end("statute")
		}
		x.end("definitions")
	}

	if len(article.Requirements) > 0 {
		x.start(elem("requirements"))
		for _, req := range article.Requirements {
			x.start(elem("statute"))
			x.text("label", req.Label)
			x.text("description", req.Description)
			x.text("stateCode", req.StateCode)
			x.text("source", req.Source)

			x.start(elem("appliesTo"))
			entities := req.Entities
			if len(entities) == 0 {
				entities = []string{""}
			}
			for _, entity := range entities {
				x.text("entity", entity)
			}
			x.end("appliesTo")

			x.start(elem("terms"))
			for _, tag := range req.Tags {
				// Guard against double-escaped ampersands carried in from
				// the source document.
				x.text("term", strings.ReplaceAll(tag, "&amp;", "&"))
			}
			x.end("terms")
			x.end("statute")
		}
		x.end("requirements")
	}

	x.end(elemName)
}

// xmlWriter wraps an encoder with error-latching element helpers.
type xmlWriter struct {
	enc *xml.Encoder
	err error
}

func elem(name string) xml.StartElement {
	return xml.StartElement{Name: xml.Name{Local: name}}
}

func (x *xmlWriter) start(start xml.StartElement) {
	if x.err != nil {
		return
	}
	x.err = x.enc.EncodeToken(start)
}

func (x *xmlWriter) end(name string) {
	if x.err != nil {
		return
	}
	x.err = x.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: name}})
}

func (x *xmlWriter) text(name, value string) {
	if x.err != nil {
		return
	}
	start := elem(name)
	if err := x.enc.EncodeToken(start); err != nil {
		x.err = err
		return
	}
	if value != "" {
		if err := x.enc.EncodeToken(xml.CharData(value)); err != nil {
			x.err = err
			return
		}
	}
	x.err = x.enc.EncodeToken(xml.EndElement{Name: start.Name})
}
