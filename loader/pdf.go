package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrNotPDF marks an upload that is not a readable PDF file.
var ErrNotPDF = errors.New("file is not a valid PDF")

// ErrNoText marks a PDF with no extractable text (scanned images, empty
// pages). Such a document cannot be chunked.
var ErrNoText = errors.New("no text extracted from PDF")

// ExtractText pulls the plain text out of a PDF on disk and returns it with
// the page count. The file is validated first so a mislabeled upload fails as
// a bad input rather than a parser panic deep in extraction.
func ExtractText(path string) (string, int, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return "", 0, fmt.Errorf("%w: %s", ErrNotPDF, filepath.Base(path))
	}
	if err := pdfcpu.ValidateFile(path, nil); err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}

	pageCount, err := pdfcpu.PageCountFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("counting pages: %w", err)
	}

	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	defer f.Close()

	b, err := rdr.GetPlainText()
	if err != nil {
		return "", 0, fmt.Errorf("reading pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", 0, fmt.Errorf("reading pdf text: %w", err)
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", 0, fmt.Errorf("%w: %s", ErrNoText, filepath.Base(path))
	}
	return text, pageCount, nil
}
