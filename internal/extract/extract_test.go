package extract

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"notes.pdf", true},
		{"homework.DOCX", true},
		{"plain.txt", true},
		{"archive.zip", false},
		{"image.png", false},
		{"noextension", false},
	}
	for _, tt := range tests {
		if got := Allowed(tt.filename); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestTextUnsupportedType(t *testing.T) {
	if _, err := Text("/tmp/whatever", "image.png"); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Expected ErrUnsupportedType, got %v", err)
	}
}

func TestTextFromTXT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("  Solve 2x + 3 = 11\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := Text(path, "notes.txt")
	if err != nil {
		t.Fatalf("Text failed: %v", err)
	}
	if got != "Solve 2x + 3 = 11" {
		t.Errorf("Unexpected text: %q", got)
	}
}

func TestTextFromEmptyTXT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("   \n\t"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Text(path, "empty.txt"); !errors.Is(err, ErrNoText) {
		t.Errorf("Expected ErrNoText, got %v", err)
	}
}

func writeDOCX(t *testing.T, documentXML string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTextFromDOCX(t *testing.T) {
	path := writeDOCX(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Chapter 1: </w:t></w:r><w:r><w:t>Quadratic equations</w:t></w:r></w:p>
    <w:p><w:r><w:t>x^2 - 4 = 0</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	got, err := Text(path, "doc.docx")
	if err != nil {
		t.Fatalf("Text failed: %v", err)
	}
	want := "Chapter 1: Quadratic equations\nx^2 - 4 = 0"
	if got != want {
		t.Errorf("Unexpected text:\ngot  %q\nwant %q", got, want)
	}
}

func TestTextFromDOCXWithoutDocumentXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	if _, err := zw.Create("word/other.xml"); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := Text(path, "bad.docx"); !errors.Is(err, ErrNoText) {
		t.Errorf("Expected ErrNoText, got %v", err)
	}
}
