package ingest

import "math"

// DetectBoundaries returns the topic boundaries for one section's ordered
// sentence embeddings. A boundary at position i means sentences i and i+1
// belong to different topics: their cosine similarity fell below threshold.
// Sections of zero or one sentence yield no boundaries. The function is
// pure and deterministic given the embeddings and threshold.
func DetectBoundaries(embeddings [][]float32, threshold float64) []int {
	if len(embeddings) < 2 {
		return nil
	}
	var boundaries []int
	for i := 0; i < len(embeddings)-1; i++ {
		if cosineSim(embeddings[i], embeddings[i+1]) < threshold {
			boundaries = append(boundaries, i)
		}
	}
	return boundaries
}

// cosineSim computes cosine similarity between two vectors. Mismatched or
// empty vectors score 0.
func cosineSim(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
