package extract

import (
	"os"
	"path/filepath"
	"testing"
)

const coverageRels = `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="https://example.gov/Covered%20Page" TargetMode="External"/>
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="https://example.gov/missing" TargetMode="External"/>
</Relationships>`

const coverageDocument = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"
            xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <w:body>
    <w:tbl>
      <w:tr>
        <w:tc>
          <w:p><w:hyperlink r:id="rId1"><w:r><w:t>Covered Statute</w:t></w:r></w:hyperlink></w:p>
          <w:p><w:hyperlink r:id="rId2"><w:r><w:t>Missing Statute</w:t></w:r></w:hyperlink></w:p>
          <w:p><w:hyperlink r:id="rId2"><w:r><w:t>Missing Again</w:t></w:r></w:hyperlink></w:p>
          <w:p>
            <w:r><w:instrText> HYPERLINK "https://example.gov/Field%20Missing" </w:instrText></w:r>
            <w:r><w:t>Field Citation</w:t></w:r>
          </w:p>
        </w:tc>
        <w:tc><w:p/></w:tc>
      </w:tr>
    </w:tbl>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Table of Contents</w:t></w:r></w:p></w:tc>
        <w:tc>
          <w:p><w:hyperlink r:id="rId2"><w:r><w:t>TOC entry never reported</w:t></w:r></w:hyperlink></w:p>
        </w:tc>
      </w:tr>
    </w:tbl>
  </w:body>
</w:document>`

func writeXMLFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "record.xml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckSourceCoverage(t *testing.T) {
	doc := buildDocx(t, coverageDocument, coverageRels)

	// The covered link appears percent-decoded in the XML; comparison is
	// encoding-insensitive.
	xmlPath := writeXMLFixture(t, `<record>
  <article>
    <source>https://example.gov/covered page</source>
  </article>
</record>`)

	missing, err := CheckSourceCoverage(doc, xmlPath)
	if err != nil {
		t.Fatalf("CheckSourceCoverage: %v", err)
	}
	if len(missing) != 2 {
		t.Fatalf("expected 2 missing links, got %d: %+v", len(missing), missing)
	}

	first := missing[0]
	if first.URL != "https://example.gov/missing" {
		t.Errorf("first missing url = %q", first.URL)
	}
	if len(first.Texts) != 2 || first.Texts[0] != "Missing Statute" || first.Texts[1] != "Missing Again" {
		t.Errorf("first missing texts = %v", first.Texts)
	}

	second := missing[1]
	if second.URL != "https://example.gov/field%20missing" {
		t.Errorf("second missing url = %q", second.URL)
	}
}

func TestCheckSourceCoverageAllCovered(t *testing.T) {
	doc := buildDocx(t, coverageDocument, coverageRels)

	xmlPath := writeXMLFixture(t, `<record>
  <source>https://example.gov/Covered%20Page</source>
  <source>HTTPS://EXAMPLE.GOV/MISSING</source>
  <source>https://example.gov/field%20missing</source>
</record>`)

	missing, err := CheckSourceCoverage(doc, xmlPath)
	if err != nil {
		t.Fatalf("CheckSourceCoverage: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("expected full coverage, got %+v", missing)
	}
}

func TestCheckSourceCoverageMissingXMLFile(t *testing.T) {
	doc := buildDocx(t, coverageDocument, coverageRels)
	if _, err := CheckSourceCoverage(doc, filepath.Join(t.TempDir(), "absent.xml")); err == nil {
		t.Fatal("expected error for missing xml file")
	}
}
