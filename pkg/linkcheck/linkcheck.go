// Package linkcheck verifies that every source URL in a generated XML record
// still resolves, and writes a CSV of the ones that do not. Rows carry an
// empty "Corrected URL" column for maintainers to fill in by hand.
package linkcheck

import (
	"context"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HTTPClient is an interface matching the Do method of *http.Client. This
// allows injection of mock clients for testing and custom transports.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Status classifies the outcome of checking one URL.
type Status string

const (
	StatusOK      Status = "ok"
	StatusBroken  Status = "broken"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// Result is the outcome of checking one source URL.
type Result struct {
	URL        string
	Status     Status
	StatusCode int
	Err        error
	CheckedAt  time.Time
}

// Bad reports whether the URL should appear in the bad-links CSV.
func (r *Result) Bad() bool {
	return r.Status == StatusBroken || r.Status == StatusError
}

// Config controls checking behavior.
type Config struct {
	// Timeout bounds each request.
	Timeout time.Duration
	// Delay is the politeness pause between consecutive requests.
	Delay time.Duration
	// UserAgent identifies the checker to remote servers.
	UserAgent string
}

// DefaultConfig returns the production checking configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:   30 * time.Second,
		Delay:     500 * time.Millisecond,
		UserAgent: "statrec-linkcheck/1.0",
	}
}

// Checker checks the source URLs of generated XML records.
type Checker struct {
	config *Config
	client HTTPClient
}

// NewChecker creates a checker. A nil config uses DefaultConfig; a nil client
// uses a plain http.Client honoring the configured timeout.
func NewChecker(config *Config, client HTTPClient) *Checker {
	if config == nil {
		config = DefaultConfig()
	}
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	return &Checker{config: config, client: client}
}

// CheckFile extracts every distinct source URL from the XML file at xmlPath
// and checks each once, in document order, pausing between requests. The
// context cancels the remaining checks.
func (c *Checker) CheckFile(ctx context.Context, xmlPath string) ([]*Result, error) {
	urls, err := sourceURLs(xmlPath)
	if err != nil {
		return nil, err
	}
	return c.CheckURLs(ctx, urls), nil
}

// CheckURLs checks each URL once, in order.
func (c *Checker) CheckURLs(ctx context.Context, urls []string) []*Result {
	results := make([]*Result, 0, len(urls))
	for i, u := range urls {
		if i > 0 && c.config.Delay > 0 {
			select {
			case <-ctx.Done():
				return results
			case <-time.After(c.config.Delay):
			}
		}
		if ctx.Err() != nil {
			return results
		}
		results = append(results, c.checkOne(ctx, u))
	}
	return results
}

func (c *Checker) checkOne(ctx context.Context, rawURL string) *Result {
	result := &Result{URL: rawURL, CheckedAt: time.Now()}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		result.Status = StatusSkipped
		return result
	}

	reqCtx := ctx
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		result.Status = StatusError
		result.Err = err
		return result
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		result.Status = StatusError
		result.Err = err
		return result
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	result.StatusCode = resp.StatusCode
	if resp.StatusCode == http.StatusOK {
		result.Status = StatusOK
	} else {
		result.Status = StatusBroken
	}
	return result
}

// WriteBadLinksCSV writes {state}_bad_links.csv in outDir listing every bad
// result, and returns the written path. The file is written even when all
// links are good so a stale report never lingers from an earlier run.
func WriteBadLinksCSV(results []*Result, outDir, state string) (string, error) {
	path := filepath.Join(outDir, fmt.Sprintf("%s_bad_links.csv", state))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create bad links csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Bad URL", "Corrected URL"}); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range results {
		if !r.Bad() {
			continue
		}
		if err := w.Write([]string{r.URL, ""}); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return path, nil
}

// sourceURLs returns the distinct source element values of the XML file, in
// document order.
func sourceURLs(xmlPath string) ([]string, error) {
	f, err := os.Open(xmlPath)
	if err != nil {
		return nil, fmt.Errorf("open xml file: %w", err)
	}
	defer f.Close()

	var urls []string
	seen := make(map[string]bool)

	dec := xml.NewDecoder(f)
	inSource := false
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml file: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "source" {
				inSource = true
				text.Reset()
			}
		case xml.CharData:
			if inSource {
				text.Write(t)
			}
		case xml.EndElement:
			if inSource && t.Name.Local == "source" {
				inSource = false
				u := strings.TrimSpace(text.String())
				if u != "" && !seen[u] {
					seen[u] = true
					urls = append(urls, u)
				}
			}
		}
	}
	return urls, nil
}
