package document

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>Performance review 2020</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t>Led team of 5</w:t></w:r><w:r><w:tab/><w:t xml:space="preserve"> &amp; grew NPS</w:t></w:r></w:p>
</w:body></w:document>`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func buildDOCX(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range []struct{ name, body string }{
		{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`},
		{"_rels/.rels", `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`},
		{"word/document.xml", documentXML},
		{"word/_rels/document.xml.rels", `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`},
	} {
		w, err := zw.Create(f.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestReadText(t *testing.T) {
	path := writeFile(t, "notes.txt", []byte("Led team of 5\nZürich office\n"))

	doc, err := NewReader(zap.NewNop()).Read(path)
	require.NoError(t, err)

	assert.Equal(t, "notes.txt", doc.Name)
	assert.Equal(t, "Led team of 5\nZürich office\n", doc.Text)
	assert.True(t, strings.HasPrefix(doc.MIME, "text/plain"))
	assert.False(t, doc.IsImagePDF())
}

func TestReadDOCX(t *testing.T) {
	path := writeFile(t, "review.docx", buildDOCX(t))

	doc, err := NewReader(nil).Read(path)
	require.NoError(t, err)
	assert.Equal(t, "Performance review 2020\nLed team of 5\t & grew NPS", doc.Text)
}

func TestReadDOCXSavedAsDoc(t *testing.T) {
	path := writeFile(t, "review.doc", buildDOCX(t))

	doc, err := NewReader(nil).Read(path)
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "Led team of 5")
}

func TestReadUnsupported(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	path := writeFile(t, "scan.pdf", png)

	_, err := NewReader(nil).Read(path)

	var readErr *ReadError
	require.True(t, errors.As(err, &readErr))
	assert.Equal(t, path, readErr.Path)
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestReadMissing(t *testing.T) {
	_, err := NewReader(nil).Read(filepath.Join(t.TempDir(), "missing.txt"))

	var readErr *ReadError
	require.True(t, errors.As(err, &readErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParagraphs(t *testing.T) {
	text, err := paragraphs(documentXML)
	require.NoError(t, err)
	assert.Equal(t, "Performance review 2020\nLed team of 5\t & grew NPS", text)

	_, err = paragraphs("<w:p><w:t>broken")
	assert.Error(t, err)
}

func TestContent(t *testing.T) {
	t.Parallel()

	image := &Document{Name: "scan.pdf", Text: ImagePDF}
	assert.True(t, image.IsImagePDF())
	assert.Equal(t, "[Image PDF: scan.pdf]", image.Content())

	doc := &Document{Name: "a.txt", Text: "Zürich rocks"}
	assert.Equal(t, "Zürich rocks", doc.Content())
	assert.Equal(t, "Zür", doc.Truncate(3))
	assert.Equal(t, "Zürich rocks", doc.Truncate(0))
	assert.Equal(t, "Zürich rocks", doc.Truncate(100))
}

func TestSupported(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]bool{
		"review.PDF":  true,
		"cv.docx":     true,
		"old.doc":     true,
		"notes.txt":   true,
		"photo.png":   false,
		"Makefile":    false,
		"archive.zip": false,
	} {
		assert.Equal(t, want, Supported(name), name)
	}
}

func TestCountText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 4, countText(" a b\n\tc d "))
	assert.Zero(t, countText(""))
}
