// Package render produces the browsable HTML view of an extracted record
// set, mirroring the structure of the XML output.
package render

import (
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/coolbeans/statrec/pkg/record"
)

//go:embed record.html.tmpl
var defaultTemplate string

// page is the root template context.
type page struct {
	Meta   record.Meta
	Titles []*record.Title
}

// HTMLFile renders the record set to {state}_{YYYYMMDD}.html in outDir and
// returns the written path. When templateFile is non-empty it overrides the
// embedded template.
func HTMLFile(meta record.Meta, set *record.Set, outDir, templateFile string) (string, error) {
	tmpl, err := loadTemplate(templateFile)
	if err != nil {
		return "", err
	}

	stem := strings.ReplaceAll(strings.ToLower(meta.State), " ", "_")
	path := filepath.Join(outDir, fmt.Sprintf("%s_%s.html", stem, datestamp(meta)))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create html file: %w", err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, page{Meta: meta, Titles: set.Titles()}); err != nil {
		return "", fmt.Errorf("render %s: %w", path, err)
	}
	return path, nil
}

func datestamp(meta record.Meta) string {
	date := meta.Date
	if date.IsZero() {
		date = time.Now()
	}
	return date.Format("20060102")
}

func loadTemplate(templateFile string) (*template.Template, error) {
	if templateFile == "" {
		return template.Must(template.New("record").Parse(defaultTemplate)), nil
	}
	tmpl, err := template.ParseFiles(templateFile)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", templateFile, err)
	}
	return tmpl, nil
}
