package vectorstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docchat/internal/ai"
)

// hashEmbedder stands in for the hosted embedding service using the
// deterministic content-hash vectors.
type hashEmbedder struct{}

func (hashEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return ai.FallbackEmbedding(text, 64), nil
}

func (hashEmbedder) ModelName() string { return "hash" }

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return nil, errors.New("embedding service down")
}

func (failingEmbedder) ModelName() string { return "failing" }

func newTestStore(t *testing.T, embedder ai.IEmbedder) *Store {
	t.Helper()
	s, err := New(t.TempDir(), "documents", embedder, 64, 5*time.Second)
	require.NoError(t, err)
	return s
}

func TestSearchEmptyIndex(t *testing.T) {
	s := newTestStore(t, hashEmbedder{})
	require.Empty(t, s.Search(context.Background(), "anything", 3))
	require.Equal(t, 0, s.Count(context.Background()))
}

func TestAddAndSearch(t *testing.T) {
	s := newTestStore(t, hashEmbedder{})
	texts := []string{"the first chunk of text", "the second chunk of text"}
	err := s.Add(context.Background(), texts, map[string]string{"filename": "doc.pdf"})
	require.NoError(t, err)
	require.Equal(t, 2, s.Count(context.Background()))

	// k larger than the index is clamped, not an error.
	got := s.Search(context.Background(), "the first chunk of text", 5)
	require.Len(t, got, 2)
	require.ElementsMatch(t, texts, got)
	require.Equal(t, texts[0], got[0])
}

func TestClearResetsState(t *testing.T) {
	s := newTestStore(t, hashEmbedder{})
	err := s.Add(context.Background(), []string{"chunk one", "chunk two"}, map[string]string{"filename": "a.pdf"})
	require.NoError(t, err)

	require.NoError(t, s.Clear(context.Background()))
	require.Equal(t, 0, s.Count(context.Background()))
	require.Empty(t, s.Search(context.Background(), "chunk", 3))

	// The recreated collection accepts new writes.
	err = s.Add(context.Background(), []string{"fresh chunk"}, map[string]string{"filename": "b.pdf"})
	require.NoError(t, err)
	require.Equal(t, 1, s.Count(context.Background()))
}

func TestAddFallsBackWhenEmbedderFails(t *testing.T) {
	s := newTestStore(t, failingEmbedder{})
	err := s.Add(context.Background(), []string{"alpha text", "beta text"}, map[string]string{"filename": "c.pdf"})
	require.NoError(t, err, "embedding degradation must not fail ingestion")
	require.Equal(t, 2, s.Count(context.Background()))
	require.Equal(t, 2, s.FallbackCount())

	// Query embedding degrades too, so search still answers.
	require.Len(t, s.Search(context.Background(), "alpha text", 2), 2)
}

func TestReembedFallback(t *testing.T) {
	s := newTestStore(t, failingEmbedder{})
	err := s.Add(context.Background(), []string{"alpha text", "beta text"}, map[string]string{"filename": "c.pdf"})
	require.NoError(t, err)
	require.Equal(t, 2, s.FallbackCount())

	// Still failing: nothing gets rewritten.
	n, err := s.ReembedFallback(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, 2, s.FallbackCount())

	// Service recovers.
	s.embedder = hashEmbedder{}
	n, err = s.ReembedFallback(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Zero(t, s.FallbackCount())
	require.Equal(t, 2, s.Count(context.Background()), "re-embedding rewrites in place")
}
