package ror

import (
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCleanAffiliation(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases and joins", "Example University", "example+university"},
		{"trims", "  Example University  ", "example+university"},
		{"dash qualifier", "University of Example - Main Campus", "university+of+example+main+campus"},
		{"ampersand", "Health & Human Services", "health+%26+human+services"},
		{"accents stripped", "Universität Beispiel", "universitat+beispiel"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanAffiliation(tc.in); got != tc.want {
				t.Errorf("CleanAffiliation(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

const chosenResponse = `{
  "items": [
    {"chosen": false, "organization": {"id": "https://ror.org/0other", "name": "Other Org"}},
    {
      "chosen": true,
      "organization": {
        "id": "https://ror.org/02abc1de4",
        "name": "Example University",
        "country": {"country_name": "United States"},
        "addresses": [{"state_code": "US-CA"}]
      }
    }
  ]
}`

func TestLookup(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		io.WriteString(w, chosenResponse)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	match, err := client.Lookup(context.Background(), "Example University")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	if gotQuery != "affiliation=example+university" {
		t.Errorf("query = %q", gotQuery)
	}
	if match == nil || match.ID != "https://ror.org/02abc1de4" {
		t.Fatalf("match = %+v", match)
	}
	if match.Country != "United States" || match.State != "US-CA" {
		t.Errorf("match = %+v", match)
	}
}

func TestLookupNoChosenItem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"items": [{"chosen": false, "organization": {"id": "x", "name": "y"}}]}`)
	}))
	defer server.Close()

	match, err := NewClient(server.URL, nil).Lookup(context.Background(), "Nowhere Institute")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if match != nil {
		t.Errorf("expected no match, got %+v", match)
	}
}

func TestMatchVerify(t *testing.T) {
	match := &Match{Country: "United States", State: "US-CA"}

	if !match.Verify("United States", "US-CA") {
		t.Error("exact expectations should verify")
	}
	if !match.Verify("", "") {
		t.Error("empty expectations always pass")
	}
	if !match.Verify("USA", "US-CA") {
		t.Error("the USA abbreviation should verify against United States")
	}
	if match.Verify("Canada", "") {
		t.Error("country mismatch should fail")
	}
	if match.Verify("United States", "US-NY") {
		t.Error("state mismatch should fail")
	}
}

func TestMatchCSV(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.RawQuery, "example") {
			io.WriteString(w, chosenResponse)
			return
		}
		io.WriteString(w, `{"items": []}`)
	}))
	defer server.Close()

	dir := t.TempDir()
	inPath := filepath.Join(dir, "orgs.csv")
	content := `Organization,Country,State
Example University,United States,US-CA
Nowhere Institute,,
`
	if err := os.WriteFile(inPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	outPath := filepath.Join(dir, "orgs_ror.csv")
	summary, err := NewClient(server.URL, nil).MatchCSV(context.Background(), inPath, outPath)
	if err != nil {
		t.Fatalf("MatchCSV: %v", err)
	}
	if summary.Matched != 1 || summary.Unmatched != 1 {
		t.Errorf("summary = %+v", summary)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	if rows[0][3] != "ROR ID" || rows[0][4] != "ROR Name" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][3] != "https://ror.org/02abc1de4" {
		t.Errorf("matched row = %v", rows[1])
	}
	if rows[2][3] != "" {
		t.Errorf("unmatched row = %v", rows[2])
	}
}
