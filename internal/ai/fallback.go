package ai

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// DefaultFallbackDim matches the dimensionality used when the hosted
// embedding service is unreachable.
const DefaultFallbackDim = 384

// FallbackEmbedding derives a deterministic vector from the text content.
// Identical text always yields a bit-identical vector, since callers may
// re-embed the same chunk on repeated failures. The digest is packed as
// 2-byte big-endian windows scaled into [0,1], zero-padded to dim, then
// L2-normalized. This is a content hash, not a semantic embedding;
// similarity over these vectors is weak and they exist only so ingestion
// keeps working when the embedding service is down.
func FallbackEmbedding(text string, dim int) []float32 {
	if dim <= 0 {
		dim = DefaultFallbackDim
	}
	digest := sha256.Sum256([]byte(text))

	vec := make([]float32, dim)
	n := 0
	for i := 0; i+2 <= len(digest) && n < dim; i += 2 {
		val := binary.BigEndian.Uint16(digest[i : i+2])
		vec[n] = float32(val) / 65535.0
		n++
	}
	// Remaining entries past digest exhaustion stay zero.

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
