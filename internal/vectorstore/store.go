// Package vectorstore wraps the semantic index behind add/search/clear
// operations. Retrieval failures degrade to empty results; write and clear
// failures are surfaced to the caller.
package vectorstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docchat/internal/ai"
	"github.com/xxxsen/docchat/internal/pkg/errs"
)

// MetaKeyEmbedding marks chunks whose vector came from the deterministic
// fallback instead of the hosted embedding service.
const (
	MetaKeyEmbedding      = "embedding"
	MetaEmbeddingFallback = "fallback"
)

type Store struct {
	db       *chromem.DB
	name     string
	embedder ai.IEmbedder
	dim      int
	timeout  time.Duration

	mu         sync.Mutex
	coll       *chromem.Collection
	hasContent bool
	fallback   map[string]fallbackDoc
}

type fallbackDoc struct {
	content string
	meta    map[string]string
}

// New opens (or creates) the persistent index collection under dir. The
// has-content flag is restored from whatever the collection already holds.
func New(dir string, name string, embedder ai.IEmbedder, dim int, timeout time.Duration) (*Store, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	s := &Store{
		db:       db,
		name:     name,
		embedder: embedder,
		dim:      dim,
		timeout:  timeout,
		fallback: make(map[string]fallbackDoc),
	}
	coll, err := db.GetOrCreateCollection(name, nil, s.queryEmbeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("open collection: %w", err)
	}
	s.coll = coll
	s.hasContent = coll.Count() > 0
	return s, nil
}

// queryEmbeddingFunc embeds search queries. A hosted-embedder failure falls
// back to the deterministic embedding so a query never fails outright.
func (s *Store) queryEmbeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vec, err := s.embed(ctx, text, "RETRIEVAL_QUERY")
		if err != nil {
			logutil.GetLogger(ctx).Warn("query embedding degraded to fallback", zap.Error(err))
			return ai.FallbackEmbedding(text, s.dim), nil
		}
		return vec, nil
	}
}

func (s *Store) embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.embedder.Embed(ctx, text, taskType)
}

// Add indexes a batch of chunk texts sharing one metadata map. Each chunk
// receives a sequential id unique within the batch. All documents are staged
// (embedded) before a single index write; chunks whose hosted embedding
// failed carry the deterministic fallback vector and are tagged so a later
// re-embed pass can replace them. The underlying index does not guarantee
// batch atomicity, so a mid-batch failure may leave a partial write.
func (s *Store) Add(ctx context.Context, texts []string, meta map[string]string) error {
	if len(texts) == 0 {
		return nil
	}
	logger := logutil.GetLogger(ctx)
	batch := newBatchID()

	docs := make([]chromem.Document, 0, len(texts))
	staged := make(map[string]fallbackDoc)
	for i, text := range texts {
		id := fmt.Sprintf("%s_doc_%d", batch, i)
		md := cloneMeta(meta)
		vec, err := s.embed(ctx, text, "RETRIEVAL_DOCUMENT")
		if err != nil {
			logger.Warn("chunk embedding degraded to fallback", zap.String("id", id), zap.Error(err))
			vec = ai.FallbackEmbedding(text, s.dim)
			md[MetaKeyEmbedding] = MetaEmbeddingFallback
			staged[id] = fallbackDoc{content: text, meta: md}
		}
		docs = append(docs, chromem.Document{
			ID:        id,
			Content:   text,
			Metadata:  md,
			Embedding: vec,
		})
	}

	s.mu.Lock()
	coll := s.coll
	s.mu.Unlock()
	if err := coll.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIndexWrite, err)
	}

	s.mu.Lock()
	s.hasContent = true
	for id, doc := range staged {
		s.fallback[id] = doc
	}
	s.mu.Unlock()
	logger.Info("chunks indexed", zap.Int("count", len(docs)), zap.Int("fallback", len(staged)))
	return nil
}

// Search returns up to k chunk texts, most relevant first. An empty index
// yields an empty result; query failures are logged and swallowed so
// retrieval degradation never breaks the conversation flow.
func (s *Store) Search(ctx context.Context, query string, k int) []string {
	s.mu.Lock()
	coll := s.coll
	hasContent := s.hasContent
	s.mu.Unlock()
	if !hasContent || coll == nil || k <= 0 {
		return nil
	}
	if count := coll.Count(); k > count {
		k = count
	}
	if k == 0 {
		return nil
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	results, err := coll.Query(ctx, query, k, nil, nil)
	if err != nil {
		logutil.GetLogger(ctx).Warn("index query failed, returning empty context", zap.Error(err))
		return nil
	}
	texts := make([]string, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Content)
	}
	return texts
}

// Clear destroys and recreates the collection. Unlike Search, failures are
// surfaced: the caller explicitly asked for a state change.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIndexClear, err)
	}
	coll, err := s.db.GetOrCreateCollection(s.name, nil, s.queryEmbeddingFunc())
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIndexClear, err)
	}
	s.coll = coll
	s.hasContent = false
	s.fallback = make(map[string]fallbackDoc)
	logutil.GetLogger(ctx).Info("index cleared")
	return nil
}

// Count is best-effort and reports 0 when the index is unusable.
func (s *Store) Count(ctx context.Context) int {
	_ = ctx
	s.mu.Lock()
	coll := s.coll
	s.mu.Unlock()
	if coll == nil {
		return 0
	}
	return coll.Count()
}

// FallbackCount reports how many indexed chunks still carry fallback
// vectors.
func (s *Store) FallbackCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fallback)
}

// ReembedFallback retries the hosted embedder for every fallback-tagged
// chunk and rewrites the ones that succeed. Chunks that fail again simply
// stay tagged for the next pass.
func (s *Store) ReembedFallback(ctx context.Context) (int, error) {
	s.mu.Lock()
	pending := make(map[string]fallbackDoc, len(s.fallback))
	for id, doc := range s.fallback {
		pending[id] = doc
	}
	coll := s.coll
	s.mu.Unlock()
	if len(pending) == 0 || coll == nil {
		return 0, nil
	}

	logger := logutil.GetLogger(ctx)
	done := 0
	for id, doc := range pending {
		vec, err := s.embed(ctx, doc.content, "RETRIEVAL_DOCUMENT")
		if err != nil {
			logger.Debug("re-embed still failing", zap.String("id", id), zap.Error(err))
			continue
		}
		md := cloneMeta(doc.meta)
		delete(md, MetaKeyEmbedding)
		err = coll.AddDocuments(ctx, []chromem.Document{{
			ID:        id,
			Content:   doc.content,
			Metadata:  md,
			Embedding: vec,
		}}, 1)
		if err != nil {
			logger.Warn("re-embed index write failed", zap.String("id", id), zap.Error(err))
			continue
		}
		s.mu.Lock()
		delete(s.fallback, id)
		s.mu.Unlock()
		done++
	}
	return done, nil
}

func cloneMeta(meta map[string]string) map[string]string {
	clone := make(map[string]string, len(meta)+1)
	for k, v := range meta {
		clone[k] = v
	}
	return clone
}

func newBatchID() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
