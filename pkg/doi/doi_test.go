package doi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCredentials(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCredentials(t *testing.T) {
	path := writeCredentials(t, `{
  "test": {"user": "tu", "password": "tp", "prefix": "10.99999", "url": "https://api.test.example.org/dois"},
  "prod": {"user": "pu", "password": "pp", "prefix": "10.12345", "url": "https://api.example.org/dois"}
}`)

	creds, err := LoadCredentials(path, EnvTest)
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if creds.User != "tu" || creds.Prefix != "10.99999" {
		t.Errorf("creds = %+v", creds)
	}

	if _, err := LoadCredentials(path, "staging"); err == nil {
		t.Error("expected error for unknown environment")
	}
}

func TestLoadCredentialsMissingKey(t *testing.T) {
	path := writeCredentials(t, `{"test": {"user": "tu", "password": "tp", "url": "https://x"}}`)

	_, err := LoadCredentials(path, EnvTest)
	if err == nil || !strings.Contains(err.Error(), `"prefix"`) {
		t.Errorf("expected missing-prefix error, got %v", err)
	}
}

func TestRegister(t *testing.T) {
	var gotPath, gotUser string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	creds := &Credentials{User: "u", Password: "p", Prefix: "10.99999", URL: server.URL}
	client := NewClient(creds, nil)

	draft := &Draft{
		Suffix:       "study-42",
		Title:        "Study 42",
		Creators:     []string{"Doe, J.", "Roe, R."},
		Publisher:    "Example Archive",
		Year:         "2025",
		URL:          "https://archive.example.org/study/42",
		ResourceType: "Dataset",
	}
	if err := client.Register(context.Background(), draft); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if gotPath != "/10.99999/study-42" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotUser != "u" {
		t.Errorf("basic auth user = %q", gotUser)
	}

	attrs := gotBody["data"].(map[string]any)["attributes"].(map[string]any)
	if attrs["doi"] != "10.99999/study-42" || attrs["event"] != "publish" {
		t.Errorf("attributes = %v", attrs)
	}
	if creators := attrs["creators"].([]any); len(creators) != 2 {
		t.Errorf("creators = %v", creators)
	}
}

func TestRegisterAPIRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"errors":[{"title":"DOI already taken"}]}`)
	}))
	defer server.Close()

	client := NewClient(&Credentials{User: "u", Password: "p", Prefix: "10.99999", URL: server.URL}, nil)
	err := client.Register(context.Background(), &Draft{Suffix: "dup"})

	if err == nil || !strings.Contains(err.Error(), "422") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestRegisterBatchSkipsSuccessRows(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if strings.HasSuffix(r.URL.Path, "/bad") {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(&Credentials{User: "u", Password: "p", Prefix: "10.99999", URL: server.URL}, nil)
	drafts := []*Draft{
		{Suffix: "done", Result: "Success"},
		{Suffix: "new"},
		{Suffix: "bad"},
	}

	minted := client.RegisterBatch(context.Background(), drafts)

	if calls != 2 {
		t.Errorf("expected 2 api calls, got %d", calls)
	}
	if minted != 1 {
		t.Errorf("minted = %d, want 1", minted)
	}
	if drafts[1].Result != "Success" {
		t.Errorf("new row result = %q", drafts[1].Result)
	}
	if drafts[2].Result == "" || drafts[2].Result == "Success" {
		t.Errorf("bad row result = %q", drafts[2].Result)
	}
}

func TestRelate(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
	}))
	defer server.Close()

	client := NewClient(&Credentials{User: "u", Password: "p", Prefix: "10.99999", URL: server.URL}, nil)
	related := []RelatedIdentifier{{
		RelatedIdentifier:     "10.1000/pub-7",
		RelatedIdentifierType: "DOI",
		RelationType:          "IsSupplementTo",
	}}
	if err := client.Relate(context.Background(), "10.99999/study-42", related); err != nil {
		t.Fatalf("Relate: %v", err)
	}

	attrs := gotBody["data"].(map[string]any)["attributes"].(map[string]any)
	ids := attrs["relatedIdentifiers"].([]any)
	if len(ids) != 1 {
		t.Fatalf("relatedIdentifiers = %v", ids)
	}
	if ids[0].(map[string]any)["relationType"] != "IsSupplementTo" {
		t.Errorf("relation = %v", ids[0])
	}
}

func TestDraftCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "drafts.csv")
	content := `DOI Suffix,Title,Creators,Publisher,Publication Year,URL,Resource Type,Result
study-1,First Study,"Doe, J.; Roe, R.",Example Archive,2024,https://archive.example.org/1,Dataset,Success
study-2,Second Study,"Poe, E.",Example Archive,2025,https://archive.example.org/2,Dataset,
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	drafts, err := ReadDraftCSV(path)
	if err != nil {
		t.Fatalf("ReadDraftCSV: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("drafts = %d", len(drafts))
	}
	if drafts[0].Result != "Success" || len(drafts[0].Creators) != 2 {
		t.Errorf("first draft = %+v", drafts[0])
	}
	if drafts[1].Suffix != "study-2" || drafts[1].Result != "" {
		t.Errorf("second draft = %+v", drafts[1])
	}

	out := filepath.Join(dir, "minted.csv")
	if err := WriteMintedCSV(out, drafts); err != nil {
		t.Fatalf("WriteMintedCSV: %v", err)
	}
	reread, err := ReadDraftCSV(out)
	if err != nil {
		t.Fatalf("reread: %v", err)
	}
	if len(reread) != 2 || reread[0].Title != "First Study" {
		t.Errorf("reread = %+v", reread)
	}
}

func TestReadDraftCSVBadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.csv")
	if err := os.WriteFile(path, []byte("wrong,header\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadDraftCSV(path); err == nil {
		t.Fatal("expected header error")
	}
}
