// Package document turns source files (plain text, PDF, DOCX) into text for
// the extraction service.
package document

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// ImagePDF replaces the text of a PDF that has no extractable text layer.
const ImagePDF = "IMAGE_PDF"

// Extensions lists the file extensions picked up from an inputs directory.
var Extensions = []string{".pdf", ".docx", ".doc", ".txt"}

// Supported reports whether name has one of Extensions, ignoring case.
func Supported(name string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(name)))
}

// Document is a read source file.
type Document struct {
	Name string
	Path string
	// MIME is the detected content type, which may disagree with the extension.
	MIME string
	Text string
}

func (d *Document) IsImagePDF() bool {
	return d.Text == ImagePDF
}

// Content is the text handed to the extraction service. Image-only PDFs are
// described by name instead.
func (d *Document) Content() string {
	if d.IsImagePDF() {
		return fmt.Sprintf("[Image PDF: %s]", d.Name)
	}
	return d.Text
}

// Truncate returns at most limit runes of the content. A limit of zero or
// less returns the content unchanged.
func (d *Document) Truncate(limit int) string {
	content := d.Content()
	if limit <= 0 {
		return content
	}
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit])
}

// ReadError reports a document that could not be read or has an unsupported
// format. It only aborts the one document.
type ReadError struct {
	Path  string
	Cause error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading document %q: %v", e.Path, e.Cause)
}

func (e *ReadError) Unwrap() error {
	return e.Cause
}
