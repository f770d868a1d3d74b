// Package crosswalk renders an exported study description into standard
// metadata schemas. Each supported schema is a named template over the study
// document, with an optional mapping file renaming study fields before
// lookup.
package crosswalk

import (
	"bytes"
	"embed"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strings"
	"text/template"
	"time"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Study is the exported study JSON document.
type Study map[string]any

// LoadStudy reads a study JSON document from path.
func LoadStudy(path string) (Study, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read study file %s: %w", path, err)
	}
	var study Study
	if err := json.Unmarshal(data, &study); err != nil {
		return nil, fmt.Errorf("parse study file %s: %w", path, err)
	}
	return study, nil
}

// LoadMapping reads an optional JSON object mapping template field names to
// study document keys.
func LoadMapping(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping file %s: %w", path, err)
	}
	var mapping map[string]string
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("parse mapping file %s: %w", path, err)
	}
	return mapping, nil
}

// Templates returns the names of the embedded schema templates, sorted.
func Templates() []string {
	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".tmpl"))
	}
	sort.Strings(names)
	return names
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// dateLayouts are tried in order when parsing study date fields.
var dateLayouts = []string{"2006-01-02", "2006-01", "2006", time.RFC3339}

func funcMap(study Study, mapping map[string]string) template.FuncMap {
	// get resolves a field through the mapping, then the study document.
	get := func(name string) any {
		key := name
		if mapped, ok := mapping[name]; ok {
			key = mapped
		}
		return study[key]
	}

	return template.FuncMap{
		"get": get,
		"getString": func(name string) string {
			v := get(name)
			if v == nil {
				return ""
			}
			return fmt.Sprintf("%v", v)
		},
		"getList": func(name string) []string {
			items, ok := get(name).([]any)
			if !ok {
				return nil
			}
			list := make([]string, 0, len(items))
			for _, item := range items {
				list = append(list, fmt.Sprintf("%v", item))
			}
			return list
		},
		"stripTags": func(s string) string {
			return strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
		},
		"join": func(sep string, items []string) string {
			return strings.Join(items, sep)
		},
		"isoDate": func(layout, value string) string {
			for _, in := range dateLayouts {
				if t, err := time.Parse(in, value); err == nil {
					return t.Format(layout)
				}
			}
			return value
		},
		"xmlEscape": func(s string) string {
			var b bytes.Buffer
			xml.EscapeText(&b, []byte(s))
			return b.String()
		},
		"jsonEscape": func(s string) string {
			data, err := json.Marshal(s)
			if err != nil {
				return `""`
			}
			return string(data[1 : len(data)-1])
		},
	}
}

// Render writes the named schema rendering of study to w. The mapping may be
// nil when the study document already uses the template's field names.
func Render(w io.Writer, name string, study Study, mapping map[string]string) error {
	data, err := templateFS.ReadFile("templates/" + name + ".tmpl")
	if err != nil {
		return fmt.Errorf("unknown crosswalk template %q (have %s)", name, strings.Join(Templates(), ", "))
	}

	tmpl, err := template.New(name).Funcs(funcMap(study, mapping)).Parse(string(data))
	if err != nil {
		return fmt.Errorf("parse crosswalk template %q: %w", name, err)
	}
	if err := tmpl.Execute(w, study); err != nil {
		return fmt.Errorf("render crosswalk template %q: %w", name, err)
	}
	return nil
}
