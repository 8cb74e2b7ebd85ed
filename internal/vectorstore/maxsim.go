package vectorstore

import "math"

// maxSim computes the late-interaction MaxSim score between a query
// token matrix and a document token matrix: for every query token,
// take its best cosine similarity against any document token, then sum
// those per-query-token maxima. This is the standard ColBERT-style
// scoring function for multi-vector retrieval.
func maxSim(query, doc []TokenVector) float64 {
	if len(query) == 0 || len(doc) == 0 {
		return 0
	}

	var total float64
	for _, q := range query {
		best := -1.0
		for _, d := range doc {
			if s := cosine(q, d); s > best {
				best = s
			}
		}
		total += best
	}
	return total
}

func cosine(a, b TokenVector) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
