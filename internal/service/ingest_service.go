package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docchat/internal/chunker"
	"github.com/xxxsen/docchat/internal/filestore"
	"github.com/xxxsen/docchat/internal/model"
	"github.com/xxxsen/docchat/internal/pdf"
	"github.com/xxxsen/docchat/internal/pkg/errs"
)

// Extractor pulls text and metadata out of a PDF byte stream.
type Extractor interface {
	Extract(ctx context.Context, r io.ReaderAt, size int64) (*pdf.Document, error)
}

// Indexer accepts a batch of chunk texts with shared metadata.
type Indexer interface {
	Add(ctx context.Context, texts []string, meta map[string]string) error
}

// IngestService runs the upload pipeline: persist the raw file, extract
// its text, split it into chunks and hand the batch to the index.
type IngestService struct {
	extractor    Extractor
	index        Indexer
	files        filestore.Store
	chunkSize    int
	chunkOverlap int
}

func NewIngestService(extractor Extractor, index Indexer, files filestore.Store, chunkSize int, chunkOverlap int) *IngestService {
	return &IngestService{
		extractor:    extractor,
		index:        index,
		files:        files,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// IngestPDF processes one uploaded document. A failure to persist the raw
// file aborts the pipeline before the index is touched, so the index never
// holds chunks for files that were not stored.
func (s *IngestService) IngestPDF(ctx context.Context, filename string, data []byte) (*model.DocumentInfo, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("filename", filename), zap.Int("size", len(data)))

	key := fmt.Sprintf("%s_%s", randomID(), filename)
	if err := s.files.Save(ctx, key, nopSeekCloser{bytes.NewReader(data)}, int64(len(data))); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	doc, err := s.extractor.Extract(ctx, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: extract %s: %v", errs.ErrIngestion, filename, err)
	}

	chunks := chunker.Split(doc.Text(), s.chunkSize, s.chunkOverlap)
	if len(chunks) == 0 {
		logger.Warn("document produced no chunks, skipping index")
	} else {
		texts := make([]string, 0, len(chunks))
		for _, ck := range chunks {
			texts = append(texts, ck.Text)
		}
		if err := s.index.Add(ctx, texts, map[string]string{"filename": filename}); err != nil {
			return nil, err
		}
	}

	logger.Info("document ingested",
		zap.String("key", key),
		zap.Int("pages", doc.PageCount()),
		zap.Int("chunks", len(chunks)))
	return &model.DocumentInfo{
		Filename: filename,
		Title:    doc.Title,
		Author:   doc.Author,
		Pages:    doc.PageCount(),
		Chunks:   len(chunks),
	}, nil
}

func randomID() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }
