// Package pdf extracts per-page text from uploaded PDF documents.
package pdf

import (
	"context"
	"fmt"
	"io"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Document is the extracted content of one PDF file.
type Document struct {
	Pages  []string
	Title  string
	Author string
}

// PageCount reports the number of pages in the source file, including pages
// that produced no text.
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// Text concatenates all page text with page markers, matching the layout
// the chunker receives at ingestion time.
func (d *Document) Text() string {
	var sb strings.Builder
	for i, page := range d.Pages {
		fmt.Fprintf(&sb, "\n\n--- Page %d ---\n\n%s", i+1, page)
	}
	return sb.String()
}

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract parses the PDF held by r. Pages whose text cannot be decoded are
// kept as empty entries so page numbering stays aligned with the source
// file; a document with no decodable text at all is still returned and the
// caller decides whether to treat it as an ingestion failure.
func (e *Extractor) Extract(ctx context.Context, r io.ReaderAt, size int64) (doc *Document, err error) {
	// The underlying parser panics on some malformed files.
	defer func() {
		if rec := recover(); rec != nil {
			doc = nil
			err = fmt.Errorf("parse pdf: %v", rec)
		}
	}()

	reader, err := pdflib.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	doc = &Document{}
	info := reader.Trailer().Key("Info")
	if !info.IsNull() {
		doc.Title = strings.TrimSpace(info.Key("Title").Text())
		doc.Author = strings.TrimSpace(info.Key("Author").Text())
	}

	total := reader.NumPage()
	for num := 1; num <= total; num++ {
		page := reader.Page(num)
		if page.V.IsNull() {
			doc.Pages = append(doc.Pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logutil.GetLogger(ctx).Warn("failed to extract page text", zap.Int("page", num), zap.Error(err))
			doc.Pages = append(doc.Pages, "")
			continue
		}
		doc.Pages = append(doc.Pages, text)
	}
	return doc, nil
}
