// Package config loads and validates the YAML pipeline configuration. Every
// configuration problem is fatal before any document parsing begins, so a run
// never fails halfway through on a bad pattern or a missing file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coolbeans/statrec/pkg/extract"
	"github.com/coolbeans/statrec/pkg/record"
)

// yamlConfig mirrors the on-disk YAML layout.
type yamlConfig struct {
	State        string   `yaml:"state"`
	InputDoc     string   `yaml:"input_doc"`
	OutDir       string   `yaml:"out_dir"`
	XSDFile      string   `yaml:"xsd_file"`
	TemplateFile string   `yaml:"template_file"`
	TitleName    string   `yaml:"title_name"`
	ArticleName  string   `yaml:"article_name"`
	SubtitleName string   `yaml:"subtitle_name"`
	PartName     []string `yaml:"part_name"`
	SubPartName  string   `yaml:"sub_part_name"`
	Category     bool     `yaml:"category"`
	TitleContent bool     `yaml:"title_content"`

	StatutePattern   string `yaml:"statute_pattern"`
	StateCodePattern string `yaml:"state_code_pattern"`
}

// Config is the validated pipeline configuration.
type Config struct {
	State        string
	InputDoc     string
	OutDir       string
	XSDFile      string
	TemplateFile string
	TitleName    string
	ArticleName  string
	SubtitleName string
	PartName     []string
	SubPartName  string
	Category     bool
	TitleContent bool

	StatutePattern   *regexp.Regexp
	StateCodePattern *regexp.Regexp
}

// Load reads and validates the YAML configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	cfg := &Config{
		State:        strings.TrimSpace(raw.State),
		InputDoc:     raw.InputDoc,
		OutDir:       raw.OutDir,
		XSDFile:      raw.XSDFile,
		TemplateFile: raw.TemplateFile,
		TitleName:    raw.TitleName,
		ArticleName:  raw.ArticleName,
		SubtitleName: raw.SubtitleName,
		PartName:     raw.PartName,
		SubPartName:  raw.SubPartName,
		Category:     raw.Category,
		TitleContent: raw.TitleContent,
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "."
	}

	if err := cfg.validate(raw); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate(raw yamlConfig) error {
	required := []struct {
		key, value string
	}{
		{"state", cfg.State},
		{"input_doc", cfg.InputDoc},
		{"xsd_file", cfg.XSDFile},
		{"title_name", cfg.TitleName},
		{"statute_pattern", raw.StatutePattern},
		{"state_code_pattern", raw.StateCodePattern},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("config key %q is required", r.key)
		}
	}

	// An article label is only optional when titles carry content directly.
	if cfg.ArticleName == "" && !cfg.TitleContent {
		return fmt.Errorf("config key %q is required unless title_content is set", "article_name")
	}

	for _, path := range []string{cfg.InputDoc, cfg.XSDFile} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("config references missing file %s: %w", path, err)
		}
	}
	if info, err := os.Stat(cfg.OutDir); err != nil {
		return fmt.Errorf("config references missing out_dir %s: %w", cfg.OutDir, err)
	} else if !info.IsDir() {
		return fmt.Errorf("out_dir %s is not a directory", cfg.OutDir)
	}
	if cfg.TemplateFile != "" {
		if _, err := os.Stat(cfg.TemplateFile); err != nil {
			return fmt.Errorf("config references missing template %s: %w", cfg.TemplateFile, err)
		}
	}

	var err error
	if cfg.StatutePattern, err = regexp.Compile(raw.StatutePattern); err != nil {
		return fmt.Errorf("statute_pattern does not compile: %w", err)
	}
	if cfg.StateCodePattern, err = regexp.Compile(raw.StateCodePattern); err != nil {
		return fmt.Errorf("state_code_pattern does not compile: %w", err)
	}

	for _, name := range cfg.PartName {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("part_name entries must be non-empty")
		}
	}
	return nil
}

// AuditPaths returns the transient and final audit log paths for this run.
// The filename stem matches the XML and HTML outputs: lowercased state with
// spaces replaced by underscores.
func (cfg *Config) AuditPaths() (tmpPath, finalPath string) {
	stem := strings.ReplaceAll(strings.ToLower(cfg.State), " ", "_")
	tmpPath = filepath.Join(cfg.OutDir, "tmp_"+stem+"_audit-log.txt")
	finalPath = filepath.Join(cfg.OutDir, stem+"_audit-log.txt")
	return tmpPath, finalPath
}

// ExtractConfig derives the scanner configuration.
func (cfg *Config) ExtractConfig() extract.Config {
	return extract.Config{
		State:            cfg.State,
		TitleName:        cfg.TitleName,
		ArticleName:      cfg.ArticleName,
		SubtitleName:     cfg.SubtitleName,
		PartName:         cfg.PartName,
		SubPartName:      cfg.SubPartName,
		Category:         cfg.Category,
		TitleContent:     cfg.TitleContent,
		StatutePattern:   cfg.StatutePattern,
		StateCodePattern: cfg.StateCodePattern,
	}
}

// RecordMeta derives the XML header metadata.
func (cfg *Config) RecordMeta() record.Meta {
	return record.Meta{
		State:        cfg.State,
		TitleName:    cfg.TitleName,
		ArticleName:  cfg.ArticleName,
		SubtitleName: cfg.SubtitleName,
		PartName:     cfg.PartName,
		SubPartName:  cfg.SubPartName,
	}
}
