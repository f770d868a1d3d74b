package ror

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Summary reports MatchCSV counts.
type Summary struct {
	Matched   int
	Unmatched int
}

// MatchCSV reconciles every row of inPath and writes outPath with ROR ID and
// ROR Name columns appended. Input columns are Organization plus optional
// Country and State verification columns; rows whose chosen match fails
// verification, and rows with no chosen match, keep empty ROR columns and
// count as unmatched. API errors abort the run.
func (c *Client) MatchCSV(ctx context.Context, inPath, outPath string) (*Summary, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return nil, fmt.Errorf("open organizations csv %s: %w", inPath, err)
	}
	defer in.Close()

	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse organizations csv %s: %w", inPath, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("organizations csv %s is empty", inPath)
	}
	if !strings.EqualFold(strings.TrimSpace(rows[0][0]), "Organization") {
		return nil, fmt.Errorf("organizations csv %s: first column should be %q", inPath, "Organization")
	}

	out, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("create output csv %s: %w", outPath, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(append(rows[0], "ROR ID", "ROR Name")); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	summary := &Summary{}
	for _, row := range rows[1:] {
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}
		var country, state string
		if len(row) > 1 {
			country = strings.TrimSpace(row[1])
		}
		if len(row) > 2 {
			state = strings.TrimSpace(row[2])
		}

		match, err := c.Lookup(ctx, name)
		if err != nil {
			return nil, err
		}

		id, matchedName := "", ""
		if match != nil && match.Verify(country, state) {
			id, matchedName = match.ID, match.Name
			summary.Matched++
		} else {
			summary.Unmatched++
			fmt.Fprintf(os.Stderr, "WARNING: no verified registry match for %q\n", name)
		}

		if err := w.Write(append(row, id, matchedName)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return summary, nil
}
