package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func validYAML(t *testing.T) string {
	dir := t.TempDir()
	doc := writeFile(t, dir, "input.docx", "stub")
	xsd := writeFile(t, dir, "schema.xsd", "stub")

	return writeFile(t, dir, "config.yaml", `
state: California
input_doc: `+doc+`
out_dir: `+dir+`
xsd_file: `+xsd+`
title_name: Title
article_name: Article
part_name: [Part]
category: false
title_content: false
statute_pattern: '^(.+?) - (.+)$'
state_code_pattern: '^(.+?) (\S+) \((\w+)\)$'
`)
}

func TestLoad(t *testing.T) {
	cfg, err := Load(validYAML(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.State != "California" || cfg.TitleName != "Title" {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.PartName) != 1 || cfg.PartName[0] != "Part" {
		t.Errorf("part names = %v", cfg.PartName)
	}
	if cfg.StatutePattern == nil || cfg.StateCodePattern == nil {
		t.Error("patterns not compiled")
	}
	if !cfg.StateCodePattern.MatchString("Welf. Code 10850 (CA)") {
		t.Error("state code pattern should match a citation line")
	}
}

func TestLoadMissingRequiredKey(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
input_doc: nowhere.docx
title_name: Title
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), `"state"`) {
		t.Errorf("expected missing-state error, got %v", err)
	}
}

func TestLoadMissingInputFile(t *testing.T) {
	dir := t.TempDir()
	xsd := writeFile(t, dir, "schema.xsd", "stub")
	path := writeFile(t, dir, "config.yaml", `
state: California
input_doc: `+filepath.Join(dir, "absent.docx")+`
xsd_file: `+xsd+`
title_name: Title
article_name: Article
statute_pattern: 'a'
state_code_pattern: 'b'
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "missing file") {
		t.Errorf("expected missing-file error, got %v", err)
	}
}

func TestLoadMissingXSDKey(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "input.docx", "stub")
	path := writeFile(t, dir, "config.yaml", `
state: California
input_doc: `+doc+`
title_name: Title
article_name: Article
statute_pattern: 'a'
state_code_pattern: 'b'
`)
	// Schema validation is not optional; a config without the schema path
	// must not load.
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), `"xsd_file"`) {
		t.Errorf("expected missing-xsd_file error, got %v", err)
	}
}

func TestLoadMissingOutDir(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "input.docx", "stub")
	xsd := writeFile(t, dir, "schema.xsd", "stub")
	path := writeFile(t, dir, "config.yaml", `
state: California
input_doc: `+doc+`
xsd_file: `+xsd+`
out_dir: `+filepath.Join(dir, "absent")+`
title_name: Title
article_name: Article
statute_pattern: 'a'
state_code_pattern: 'b'
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "out_dir") {
		t.Errorf("expected missing-out_dir error, got %v", err)
	}
}

func TestLoadBadPattern(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "input.docx", "stub")
	xsd := writeFile(t, dir, "schema.xsd", "stub")
	path := writeFile(t, dir, "config.yaml", `
state: California
input_doc: `+doc+`
xsd_file: `+xsd+`
title_name: Title
article_name: Article
statute_pattern: '('
state_code_pattern: 'b'
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "statute_pattern") {
		t.Errorf("expected pattern compile error, got %v", err)
	}
}

func TestLoadArticleNameOptionalWithTitleContent(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "input.docx", "stub")
	xsd := writeFile(t, dir, "schema.xsd", "stub")
	path := writeFile(t, dir, "config.yaml", `
state: New York
input_doc: `+doc+`
xsd_file: `+xsd+`
title_name: Title
title_content: true
statute_pattern: 'a'
state_code_pattern: 'b'
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.TitleContent {
		t.Error("title_content not set")
	}
}

func TestAuditPaths(t *testing.T) {
	// The audit stem follows the XML and HTML output naming: lowercase,
	// spaces to underscores.
	cfg := &Config{State: "New York", OutDir: "out"}
	tmpPath, finalPath := cfg.AuditPaths()

	if tmpPath != filepath.Join("out", "tmp_new_york_audit-log.txt") {
		t.Errorf("tmp path = %q", tmpPath)
	}
	if finalPath != filepath.Join("out", "new_york_audit-log.txt") {
		t.Errorf("final path = %q", finalPath)
	}
}
