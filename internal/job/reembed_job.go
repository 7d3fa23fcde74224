package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docchat/internal/vectorstore"
)

// ReembedJob retries real embeddings for chunks that were indexed with
// hash-derived fallback vectors while the embedding provider was down.
type ReembedJob struct {
	store *vectorstore.Store
}

func NewReembedJob(store *vectorstore.Store) *ReembedJob {
	return &ReembedJob{store: store}
}

func (j *ReembedJob) Name() string {
	return "reembed_fallback"
}

func (j *ReembedJob) Run(ctx context.Context) error {
	pending := j.store.FallbackCount()
	if pending == 0 {
		return nil
	}
	done, err := j.store.ReembedFallback(ctx)
	if done > 0 {
		logutil.GetLogger(ctx).Info("fallback chunks re-embedded",
			zap.Int("pending", pending), zap.Int("done", done))
	}
	return err
}
