package pdftools

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtractRawURLSourcesSplitsBySource(t *testing.T) {
	content := "junk /URI (http://annotation.test/login) junk\n" +
		"<?xpacket begin=\"\"?><rdf>http://xmp.test/tool</rdf><?xpacket end=\"w\"?>\n" +
		"plain visible text mentions http://text.test/page\n"

	dir := t.TempDir()
	path := filepath.Join(dir, "sample.pdf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	annotations, textURLs, xmpURLs, err := ExtractRawURLSources(path)
	if err != nil {
		t.Fatalf("ExtractRawURLSources returned error: %v", err)
	}

	if len(annotations) != 1 || annotations[0].URL != "http://annotation.test/login" {
		t.Errorf("expected 1 annotation url, got %+v", annotations)
	}
	if len(xmpURLs) != 1 || xmpURLs[0].URL != "http://xmp.test/tool" {
		t.Errorf("expected 1 xmp url, got %+v", xmpURLs)
	}
	if len(textURLs) != 1 || textURLs[0].URL != "http://text.test/page" {
		t.Errorf("expected 1 text url, got %+v", textURLs)
	}
}

func TestExtractRawURLSourcesReturnsErrorOnMissingFile(t *testing.T) {
	if _, _, _, err := ExtractRawURLSources("/nonexistent/path.pdf"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
