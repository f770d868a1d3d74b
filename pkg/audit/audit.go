// Package audit maintains the per-run audit log: the durable record of every
// vocabulary correction, dropped term, and duplicate encountered while
// extracting a document.
//
// Entries accumulate in a transient file during the run. Flush sorts the
// accumulated lines and writes the final log, then removes the transient
// file. A run that aborts mid-document leaves the transient file in place for
// inspection.
package audit

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Log appends audit entries to a transient file and folds them into a sorted
// final log at the end of a run.
type Log struct {
	tmpPath   string
	finalPath string
}

// New creates a Log writing to the given transient and final paths. Stale
// files from a previous run are removed so entries never mix across runs.
func New(tmpPath, finalPath string) (*Log, error) {
	for _, path := range []string{tmpPath, finalPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove stale audit file %s: %w", path, err)
		}
	}
	return &Log{tmpPath: tmpPath, finalPath: finalPath}, nil
}

// Record appends one entry. Position is the hierarchical breadcrumb of the
// record being processed when the issue was found.
func (l *Log) Record(position, message string) error {
	f, err := os.OpenFile(l.tmpPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s - %s\n", position, message); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}

// Flush sorts the transient entries, writes the final audit log, and removes
// the transient file. A run with no entries produces no final log.
func (l *Log) Flush() error {
	data, err := os.ReadFile(l.tmpPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read transient audit log: %w", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	sort.Strings(lines)

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if err := os.WriteFile(l.finalPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}

	if err := os.Remove(l.tmpPath); err != nil {
		return fmt.Errorf("remove transient audit log: %w", err)
	}
	return nil
}

// FinalPath returns the path of the sorted final log.
func (l *Log) FinalPath() string {
	return l.finalPath
}
