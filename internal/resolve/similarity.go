package resolve

import "github.com/agext/levenshtein"

// SimilarityFn computes a similarity ratio between two strings on a 0-100
// scale. The resolver and the cluster merger are written against this type so
// the matching algorithm does not depend on one particular implementation.
type SimilarityFn func(a, b string) float64

// LevenshteinRatio is the default SimilarityFn: a Levenshtein edit-distance
// similarity scaled to 0-100. Empty input scores 0.
func LevenshteinRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return levenshtein.Similarity(a, b, nil) * 100
}
