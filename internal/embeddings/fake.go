package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// FakeEmbedder produces deterministic vectors derived from the text hash.
// Identical texts get identical vectors, so similarity search over it is
// reproducible without a network dependency. Test use only.
type FakeEmbedder struct {
	Dims int
}

// NewFakeEmbedder returns a fake embedder with the given dimensionality.
func NewFakeEmbedder(dims int) *FakeEmbedder {
	if dims <= 0 {
		dims = 64
	}
	return &FakeEmbedder{Dims: dims}
}

func (f *FakeEmbedder) Name() string { return "fake" }

func (f *FakeEmbedder) Dimensions() int { return f.Dims }

func (f *FakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

// vector expands the text hash into a unit-length vector. Texts that share
// a prefix do not get similar vectors; tests needing "similar" passages
// should use identical text.
func (f *FakeEmbedder) vector(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	v := make([]float32, f.Dims)
	var norm float64
	for i := range v {
		word := binary.BigEndian.Uint32(sum[(i*4)%28 : (i*4)%28+4])
		// Perturb by index so the vector is not periodic.
		x := float64(word^uint32(i*2654435761)) / float64(math.MaxUint32)
		v[i] = float32(x*2 - 1)
		norm += float64(v[i]) * float64(v[i])
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range v {
			v[i] = float32(float64(v[i]) / norm)
		}
	}
	return v
}
