package document

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spigell/resume-keeper/internal/logger"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"go.uber.org/zap"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeText = "text/plain"
)

// minTextRunes is the least amount of non-space text a PDF must yield to
// count as text-based.
const minTextRunes = 50

var ErrUnsupported = errors.New("unsupported document format")

type Reader struct {
	logger *zap.Logger
}

func NewReader(log *zap.Logger) *Reader {
	return &Reader{logger: logger.WithFields(log)}
}

// Read loads path and extracts its text. The format is sniffed from the
// content; the extension only breaks ties for plain text.
func (r *Reader) Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ReadError{Path: path, Cause: err}
	}

	doc := &Document{Name: filepath.Base(path), Path: path}
	log := r.logger.With(logger.DocumentFields(doc.Name)...)

	mt := mimetype.Detect(data)
	doc.MIME = mt.String()

	switch {
	case mt.Is(mimePDF):
		doc.Text, err = readPDF(data)
	case mt.Is(mimeDOCX):
		doc.Text, err = readDOCX(data)
	case isText(mt, data):
		doc.Text = string(data)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupported, mt.String())
	}
	if err != nil {
		return nil, &ReadError{Path: path, Cause: err}
	}

	if ext := strings.ToLower(filepath.Ext(path)); ext != mt.Extension() && !(ext == ".txt" && mt.Is(mimeText)) {
		log.Debug("document extension does not match content", zap.String("extension", ext), zap.String("mime", doc.MIME))
	}

	if doc.IsImagePDF() {
		log.Warn("image-based PDF, no text layer")
	} else {
		log.Debug("document read", zap.String("mime", doc.MIME), zap.Int("chars", utf8.RuneCountInString(doc.Text)))
	}
	return doc, nil
}

func isText(mt *mimetype.MIME, data []byte) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(mimeText) {
			return utf8.Valid(data)
		}
	}
	return false
}

func readPDF(data []byte) (text string, err error) {
	// ledongthuc/pdf panics on some malformed files.
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("parse pdf: %v", p)
		}
	}()

	rd, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := make([]string, 0, rd.NumPage())
	for i := 1; i <= rd.NumPage(); i++ {
		page := rd.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if pageText = strings.TrimSpace(pageText); pageText != "" {
			pages = append(pages, pageText)
		}
	}

	text = strings.Join(pages, "\n\n")
	if countText(text) < minTextRunes {
		return ImagePDF, nil
	}
	return text, nil
}

func countText(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func readDOCX(data []byte) (string, error) {
	rd, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}
	defer rd.Close()

	return paragraphs(rd.Editable().GetContent())
}

// paragraphs flattens WordprocessingML into one line per non-empty paragraph.
func paragraphs(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))

	var (
		lines   []string
		current strings.Builder
		inText  bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse docx body: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if line := current.String(); strings.TrimSpace(line) != "" {
					lines = append(lines, line)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}
