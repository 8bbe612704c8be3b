package embedding

import (
	"context"
	"crypto/sha256"
	"math"
	"strings"
)

// hashDimensions keeps the fallback compatible with typical local
// embedding models.
const hashDimensions = 384

// HashEngine is the offline fallback: a deterministic token-hash
// embedding. It carries no semantic understanding — two texts score high
// only when they share vocabulary — but it keeps store and search
// working with no external service, and identical text always maps to
// the identical vector.
type HashEngine struct{}

// NewHashEngine creates the offline fallback engine.
func NewHashEngine() *HashEngine {
	return &HashEngine{}
}

// Embed maps each whitespace token into a bucket derived from its
// sha256 digest and L2-normalizes the result.
func (e *HashEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, hashDimensions)

	for _, token := range strings.Fields(strings.ToLower(text)) {
		sum := sha256.Sum256([]byte(token))
		bucket := (int(sum[0])<<8 | int(sum[1])) % hashDimensions
		// Sign from another digest byte spreads tokens over both
		// directions, which keeps unrelated texts near-orthogonal.
		if sum[2]%2 == 0 {
			vec[bucket]++
		} else {
			vec[bucket]--
		}
	}

	var mag float64
	for _, v := range vec {
		mag += float64(v) * float64(v)
	}
	if mag > 0 {
		inv := float32(1.0 / math.Sqrt(mag))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

// Dimensions returns the fallback dimensionality.
func (e *HashEngine) Dimensions() int {
	return hashDimensions
}

// Name returns the engine identifier.
func (e *HashEngine) Name() string {
	return "hash"
}
