package similarity

import (
	"math"
	"sort"
)

// Vocabulary maps a term to its column in every Vector produced by the same fit.
type Vocabulary map[string]int

type Vector []float64

// Terms returns the vocabulary in column order.
func (v Vocabulary) Terms() []string {
	out := make([]string, len(v))
	for term, col := range v {
		out[col] = term
	}
	return out
}

// Fit builds one vocabulary across all tokenized documents and returns an L2-normalised TF-IDF row
// per document. Term frequency is the raw count; idf is the smoothed ln((1+n)/(1+df)) + 1.
// Documents without tokens get an all-zero row.
func Fit(docs [][]string) (Vocabulary, []Vector) {
	df := map[string]int{}
	for _, tokens := range docs {
		seen := map[string]struct{}{}
		for _, t := range tokens {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	vocab := make(Vocabulary, len(terms))
	for i, t := range terms {
		vocab[t] = i
	}

	n := float64(len(docs))
	idf := make([]float64, len(terms))
	for i, t := range terms {
		idf[i] = ComputeIDF(df[t], n)
	}

	vectors := make([]Vector, len(docs))
	for i, tokens := range docs {
		row := make(Vector, len(terms))
		for _, t := range tokens {
			row[vocab[t]]++
		}
		for j := range row {
			row[j] *= idf[j]
		}
		normalize(row)
		vectors[i] = row
	}
	return vocab, vectors
}

// ComputeIDF is the smoothed inverse document frequency for a term found in df of n documents.
func ComputeIDF(df int, n float64) float64 {
	return math.Log((1+n)/(1+float64(df))) + 1
}

func normalize(v Vector) {
	norm := v.Norm()
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] /= norm
	}
}

func (v Vector) Norm() float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Cosine returns dot(a,b)/(|a||b|), or 0 when either vector has zero norm.
// Both vectors must come from the same fit.
func Cosine(a, b Vector) float64 {
	if len(a) != len(b) {
		panic("similarity: cosine of vectors from different vocabularies")
	}
	dot, normA, normB := 0.0, 0.0, 0.0
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return clamp01(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
