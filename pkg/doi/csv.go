package doi

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// draftHeader is the fixed column order of draft and minted CSVs.
var draftHeader = []string{
	"DOI Suffix", "Title", "Creators", "Publisher",
	"Publication Year", "URL", "Resource Type", "Result",
}

// ReadDraftCSV reads draft rows from path. The header row is required and
// must match the draft column layout; the Result column is optional in
// input files that have never been processed.
func ReadDraftCSV(path string) ([]*Draft, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open draft csv %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse draft csv %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("draft csv %s is empty", path)
	}

	header := rows[0]
	for i, want := range draftHeader[:7] {
		if i >= len(header) || !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return nil, fmt.Errorf("draft csv %s: column %d should be %q", path, i+1, want)
		}
	}

	var drafts []*Draft
	for _, row := range rows[1:] {
		if len(row) < 7 {
			continue
		}
		draft := &Draft{
			Suffix:       strings.TrimSpace(row[0]),
			Title:        strings.TrimSpace(row[1]),
			Publisher:    strings.TrimSpace(row[3]),
			Year:         strings.TrimSpace(row[4]),
			URL:          strings.TrimSpace(row[5]),
			ResourceType: strings.TrimSpace(row[6]),
		}
		for _, creator := range strings.Split(row[2], ";") {
			if creator = strings.TrimSpace(creator); creator != "" {
				draft.Creators = append(draft.Creators, creator)
			}
		}
		if len(row) > 7 {
			draft.Result = strings.TrimSpace(row[7])
		}
		drafts = append(drafts, draft)
	}
	return drafts, nil
}

// WriteMintedCSV writes drafts with their run results back to path.
func WriteMintedCSV(path string, drafts []*Draft) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create minted csv %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(draftHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, d := range drafts {
		row := []string{
			d.Suffix, d.Title, strings.Join(d.Creators, "; "), d.Publisher,
			d.Year, d.URL, d.ResourceType, d.Result,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// RegisterBatch registers every draft not already marked Success, recording
// per-row results in place. The count of newly minted DOIs is returned;
// individual row failures do not stop the batch.
func (c *Client) RegisterBatch(ctx context.Context, drafts []*Draft) int {
	minted := 0
	for _, draft := range drafts {
		if strings.EqualFold(draft.Result, "Success") {
			continue
		}
		if err := c.Register(ctx, draft); err != nil {
			draft.Result = err.Error()
			continue
		}
		draft.Result = "Success"
		minted++
	}
	return minted
}
