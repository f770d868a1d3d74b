// Package ror reconciles organization names against the Research
// Organization Registry affiliation API, attaching ROR identifiers to a CSV
// of institutions.
package ror

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultBaseURL is the production affiliation endpoint.
const DefaultBaseURL = "https://api.ror.org/v1/organizations"

// HTTPClient is an interface matching the Do method of *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client queries the registry's affiliation matcher.
type Client struct {
	baseURL string
	client  HTTPClient
}

// NewClient creates a client. An empty baseURL uses DefaultBaseURL; a nil
// httpClient uses a plain http.Client with a 30 second timeout.
func NewClient(baseURL string, httpClient HTTPClient) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, client: httpClient}
}

// CleanAffiliation prepares an organization name for the affiliation query:
// accents are decomposed and stripped, the name is lowercased, dash-joined
// qualifiers become plain spaces, and the result is query-encoded the way
// the registry expects (plus-separated, percent-encoded ampersands).
func CleanAffiliation(name string) string {
	s := strings.TrimSpace(name)

	// NFKD decomposition followed by dropping combining marks turns
	// "Universität" into "Universitat".
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}

	s = strings.ToLower(b.String())
	s = strings.ReplaceAll(s, " - ", " ")
	s = strings.ReplaceAll(s, "&", "%26")
	s = strings.ReplaceAll(s, " ", "+")
	return s
}

// Match is one reconciled organization.
type Match struct {
	ID      string
	Name    string
	Country string
	State   string
}

// affiliationResponse mirrors the registry's v1 affiliation reply.
type affiliationResponse struct {
	Items []struct {
		Chosen       bool `json:"chosen"`
		Organization struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Country struct {
				CountryName string `json:"country_name"`
			} `json:"country"`
			Addresses []struct {
				StateCode string `json:"state_code"`
			} `json:"addresses"`
		} `json:"organization"`
	} `json:"items"`
}

// Lookup queries the affiliation matcher for name. Only a result the
// registry itself marks chosen counts as a match; nil is returned otherwise.
func (c *Client) Lookup(ctx context.Context, name string) (*Match, error) {
	endpoint := c.baseURL + "?affiliation=" + CleanAffiliation(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build affiliation request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query affiliation api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("affiliation api returned status %d for %q", resp.StatusCode, name)
	}

	var parsed affiliationResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode affiliation response: %w", err)
	}

	for _, item := range parsed.Items {
		if !item.Chosen {
			continue
		}
		match := &Match{
			ID:      item.Organization.ID,
			Name:    item.Organization.Name,
			Country: item.Organization.Country.CountryName,
		}
		if len(item.Organization.Addresses) > 0 {
			match.State = item.Organization.Addresses[0].StateCode
		}
		return match, nil
	}
	return nil, nil
}

// Verify reports whether the match agrees with the expected country name
// and, when provided, the expected US state code. Empty expectations always
// pass. Input files commonly abbreviate the country as "USA"; the registry
// reports "United States", so the abbreviation is expanded before comparing.
func (m *Match) Verify(country, state string) bool {
	if strings.EqualFold(country, "USA") {
		country = "United States"
	}
	if country != "" && !strings.EqualFold(m.Country, country) {
		return false
	}
	if state != "" && !strings.EqualFold(m.State, state) {
		return false
	}
	return true
}
