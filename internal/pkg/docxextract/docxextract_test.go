package docxextract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractText(t *testing.T) {
	doc := `<?xml version="1.0"?>
<document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <body>
    <p><r><t>First paragraph</t></r></p>
    <p><r><t>Second </t></r><r><t>paragraph</t></r></p>
  </body>
</document>`
	got, err := ExtractText(buildDocx(t, doc))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d paragraphs, want 2: %q", len(lines), got)
	}
	if lines[0] != "First paragraph" {
		t.Errorf("paragraph 1 = %q", lines[0])
	}
	if lines[1] != "Second paragraph" {
		t.Errorf("split runs not joined: %q", lines[1])
	}
}

func TestExtractTextEmptyDocument(t *testing.T) {
	doc := `<?xml version="1.0"?><document><body></body></document>`
	got, err := ExtractText(buildDocx(t, doc))
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestExtractTextNotAnArchive(t *testing.T) {
	if _, err := ExtractText([]byte("plain text, not a zip")); err == nil {
		t.Fatal("expected error for non-archive input")
	}
}

func TestExtractTextMissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/styles.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("<styles/>")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := ExtractText(buf.Bytes()); err == nil {
		t.Fatal("expected error for archive without word/document.xml")
	}
}

func TestExtractTextEmptyInput(t *testing.T) {
	got, err := ExtractText(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
