package service

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docchat/internal/filestore"
	"github.com/xxxsen/docchat/internal/pdf"
)

type fakeExtractor struct {
	doc *pdf.Document
	err error
}

func (f fakeExtractor) Extract(ctx context.Context, r io.ReaderAt, size int64) (*pdf.Document, error) {
	return f.doc, f.err
}

type recordingIndexer struct {
	texts []string
	meta  map[string]string
	err   error
}

func (r *recordingIndexer) Add(ctx context.Context, texts []string, meta map[string]string) error {
	r.texts = append(r.texts, texts...)
	r.meta = meta
	return r.err
}

type memStore struct {
	keys []string
}

func (m *memStore) Save(ctx context.Context, key string, r filestore.ReadSeekCloser, size int64) error {
	m.keys = append(m.keys, key)
	return nil
}

func (m *memStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, fmt.Errorf("not found")
}

func TestIngestPDF(t *testing.T) {
	doc := &pdf.Document{
		Pages: []string{
			"The quick brown fox jumps over the lazy dog. It was a sunny day in the forest.",
			"The fox went home. The dog kept sleeping through the afternoon without a care.",
		},
		Title:  "Fox Tales",
		Author: "A. Writer",
	}
	index := &recordingIndexer{}
	files := &memStore{}
	svc := NewIngestService(fakeExtractor{doc: doc}, index, files, 60, 20)

	info, err := svc.IngestPDF(context.Background(), "fox.pdf", []byte("%PDF-1.4 fake"))
	require.NoError(t, err)

	assert.Equal(t, "fox.pdf", info.Filename)
	assert.Equal(t, "Fox Tales", info.Title)
	assert.Equal(t, "A. Writer", info.Author)
	assert.Equal(t, 2, info.Pages)
	require.Greater(t, info.Chunks, 1, "multi-sentence pages should split into multiple chunks")
	assert.Len(t, index.texts, info.Chunks)
	assert.Equal(t, map[string]string{"filename": "fox.pdf"}, index.meta)

	require.Len(t, files.keys, 1)
	assert.Contains(t, files.keys[0], "fox.pdf")
}

func TestIngestPDFExtractError(t *testing.T) {
	index := &recordingIndexer{}
	svc := NewIngestService(fakeExtractor{err: fmt.Errorf("bad xref")}, index, &memStore{}, 60, 20)

	_, err := svc.IngestPDF(context.Background(), "broken.pdf", []byte("junk"))
	require.Error(t, err)
	assert.Empty(t, index.texts, "extraction failure must not reach the index")
}

func TestIngestPDFEmptyDocument(t *testing.T) {
	index := &recordingIndexer{}
	svc := NewIngestService(fakeExtractor{doc: &pdf.Document{}}, index, &memStore{}, 60, 20)

	info, err := svc.IngestPDF(context.Background(), "empty.pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Zero(t, info.Chunks)
	assert.Empty(t, index.texts)
}

func TestIngestPDFIndexError(t *testing.T) {
	doc := &pdf.Document{Pages: []string{"Some real content on a page. More content follows here."}}
	index := &recordingIndexer{err: fmt.Errorf("store closed")}
	svc := NewIngestService(fakeExtractor{doc: doc}, index, &memStore{}, 60, 20)

	_, err := svc.IngestPDF(context.Background(), "doc.pdf", []byte("%PDF"))
	require.Error(t, err)
}
