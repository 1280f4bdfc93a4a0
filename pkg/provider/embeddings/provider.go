// Package embeddings defines the Provider interface for text-embedding backends.
//
// An embeddings provider maps text to dense float32 vectors (OpenAI
// text-embedding-3, a local Ollama model, and so on). The archive layer embeds
// every transcript entry as it is stored, which is what lets a reviewer search
// past interviews by meaning ("candidates who discussed consensus protocols")
// instead of by keyword.
//
// Implementations must be safe for concurrent use.
package embeddings

import "context"

// Provider is the abstraction over any text-embedding backend.
//
// Every vector produced by one Provider instance has the same length,
// reported by Dimensions. Vectors from different providers, or from the same
// provider configured with different models, live in different spaces and
// must never be compared against each other. The archive enforces this by
// recording the ModelID alongside each stored vector.
type Provider interface {
	// Embed computes the embedding vector for a single text. The returned
	// slice has length Dimensions(). Text is passed to the backend verbatim;
	// any model-specific prefixing ("query: ", "passage: ") is the caller's
	// job.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch computes vectors for several texts in one backend call.
	// result[i] corresponds to texts[i]. On any failure the whole result is
	// nil; partial batches are never returned.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions reports the fixed vector length this provider produces.
	// Constant for the lifetime of the instance.
	Dimensions() int

	// ModelID reports the backend model identifier, e.g.
	// "text-embedding-3-small" or "nomic-embed-text". Stored with every
	// vector so mismatched spaces can be rejected at query time.
	ModelID() string
}
