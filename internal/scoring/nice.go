package scoring

import (
	"math"
	"sort"
)

// CosineSimilarity returns the cosine of the angle between two vectors, 0
// when either has zero norm or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// NiceScore averages the top-N cosine similarities between the candidate
// summary vector and the nice-requirement vectors, then maps [-1,1] to [0,1].
// Missing embeddings score 0.
func NiceScore(candidate []float32, niceVectors [][]float32, topN int) float64 {
	if len(candidate) == 0 || len(niceVectors) == 0 {
		return 0
	}
	if topN <= 0 {
		topN = 3
	}

	sims := make([]float64, 0, len(niceVectors))
	for _, v := range niceVectors {
		sims = append(sims, CosineSimilarity(candidate, v))
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sims)))
	if len(sims) > topN {
		sims = sims[:topN]
	}

	var sum float64
	for _, s := range sims {
		sum += s
	}
	score := (sum/float64(len(sims)) + 1) / 2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
