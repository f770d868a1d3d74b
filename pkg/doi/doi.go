// Package doi registers archive study DOIs with a DataCite-style REST API,
// driven by a CSV of draft rows. Rows already marked Success are skipped so a
// partially failed batch can be re-run as-is.
package doi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Environments selecting a credential block.
const (
	EnvTest = "test"
	EnvProd = "prod"
)

// Credentials holds one environment's API credentials.
type Credentials struct {
	User     string `json:"user"`
	Password string `json:"password"`
	Prefix   string `json:"prefix"`
	URL      string `json:"url"`
}

// credentialsFile maps environment name to credentials.
type credentialsFile map[string]Credentials

// LoadCredentials reads the credentials JSON at path and returns the block
// for env. Every field of the selected block is required.
func LoadCredentials(path, env string) (*Credentials, error) {
	if env != EnvTest && env != EnvProd {
		return nil, fmt.Errorf("unknown environment %q: want %q or %q", env, EnvTest, EnvProd)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file %s: %w", path, err)
	}

	var file credentialsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse credentials file %s: %w", path, err)
	}

	creds, ok := file[env]
	if !ok {
		return nil, fmt.Errorf("credentials file %s has no %q block", path, env)
	}
	for key, value := range map[string]string{
		"user": creds.User, "password": creds.Password,
		"prefix": creds.Prefix, "url": creds.URL,
	} {
		if value == "" {
			return nil, fmt.Errorf("credentials key %q is required in the %q block", key, env)
		}
	}
	return &creds, nil
}

// HTTPClient is an interface matching the Do method of *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client registers and updates DOIs against one environment.
type Client struct {
	creds  *Credentials
	client HTTPClient
}

// NewClient creates a client. A nil httpClient uses a plain http.Client with
// a 30 second timeout.
func NewClient(creds *Credentials, httpClient HTTPClient) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{creds: creds, client: httpClient}
}

// Draft is one DOI registration request.
type Draft struct {
	Suffix       string
	Title        string
	Creators     []string
	Publisher    string
	Year         string
	URL          string
	ResourceType string

	// Result is the prior run's outcome; "Success" rows are skipped.
	Result string
}

// DOI returns the full DOI the draft will mint.
func (d *Draft) DOI(prefix string) string {
	return prefix + "/" + d.Suffix
}

// dataciteBody is the JSON:API request body for DOI create and update calls.
type dataciteBody struct {
	Data struct {
		Type       string             `json:"type"`
		Attributes dataciteAttributes `json:"attributes"`
	} `json:"data"`
}

type dataciteAttributes struct {
	Event              string              `json:"event,omitempty"`
	DOI                string              `json:"doi,omitempty"`
	Titles             []map[string]string `json:"titles,omitempty"`
	Creators           []map[string]string `json:"creators,omitempty"`
	Publisher          string              `json:"publisher,omitempty"`
	PublicationYear    string              `json:"publicationYear,omitempty"`
	URL                string              `json:"url,omitempty"`
	Types              map[string]string   `json:"types,omitempty"`
	SchemaVersion      string              `json:"schemaVersion,omitempty"`
	RelatedIdentifiers []RelatedIdentifier `json:"relatedIdentifiers,omitempty"`
}

// RelatedIdentifier links a DOI to a related publication.
type RelatedIdentifier struct {
	RelatedIdentifier     string `json:"relatedIdentifier"`
	RelatedIdentifierType string `json:"relatedIdentifierType"`
	RelationType          string `json:"relationType"`
}

// Register mints the draft's DOI. The returned error describes both
// transport failures and non-2xx API responses.
func (c *Client) Register(ctx context.Context, draft *Draft) error {
	doi := draft.DOI(c.creds.Prefix)

	var body dataciteBody
	body.Data.Type = "dois"
	attrs := &body.Data.Attributes
	attrs.Event = "publish"
	attrs.DOI = doi
	attrs.Titles = []map[string]string{{"title": draft.Title}}
	for _, creator := range draft.Creators {
		attrs.Creators = append(attrs.Creators, map[string]string{"name": creator})
	}
	attrs.Publisher = draft.Publisher
	attrs.PublicationYear = draft.Year
	attrs.URL = draft.URL
	attrs.Types = map[string]string{"resourceTypeGeneral": draft.ResourceType}
	attrs.SchemaVersion = "http://datacite.org/schema/kernel-4"

	return c.put(ctx, doi, &body)
}

// Relate adds related publication identifiers to an existing DOI.
func (c *Client) Relate(ctx context.Context, doi string, related []RelatedIdentifier) error {
	var body dataciteBody
	body.Data.Type = "dois"
	body.Data.Attributes.RelatedIdentifiers = related
	return c.put(ctx, doi, &body)
}

func (c *Client) put(ctx context.Context, doi string, body *dataciteBody) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request for %s: %w", doi, err)
	}

	endpoint := strings.TrimRight(c.creds.URL, "/") + "/" + doi
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request for %s: %w", doi, err)
	}
	req.SetBasicAuth(c.creds.User, c.creds.Password)
	req.Header.Set("Content-Type", "application/vnd.api+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("call api for %s: %w", doi, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<14))
		return fmt.Errorf("api rejected %s: status %d: %s", doi, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
