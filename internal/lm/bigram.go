package lm

import (
	"context"
	"fmt"
	"math"

	"text_forensics/internal/db"
)

// DefaultContextSize matches the GPT-2 window the thresholds were tuned against.
const DefaultContextSize = 1024

type Model interface {
	// Loss is the mean next-token cross-entropy in nats, with every token of the sequence as a target.
	Loss(ctx context.Context, tokens []int) (float64, error)
	ContextSize() int
}

// BigramModel interpolates bigram and add-one unigram estimates:
//
//	p(t|prev) = λ·c(prev,t)/c(prev) + (1-λ)·(c(t)+1)/(N+V)
//
// When prev was never seen as a context, the unigram estimate is used alone.
type BigramModel struct {
	counts      *db.Counts
	lambda      float64
	contextSize int
}

func NewBigramModel(counts *db.Counts, contextSize int) (*BigramModel, error) {
	if counts == nil {
		return nil, fmt.Errorf("bigram model: no counts")
	}
	if counts.VocabSize <= 0 {
		return nil, fmt.Errorf("bigram model: vocab size %d", counts.VocabSize)
	}
	lambda := counts.Lambda
	if lambda < 0 || lambda >= 1 {
		return nil, fmt.Errorf("bigram model: lambda %.3f outside [0,1)", lambda)
	}
	if contextSize <= 0 {
		contextSize = DefaultContextSize
	}
	return &BigramModel{counts: counts, lambda: lambda, contextSize: contextSize}, nil
}

func (m *BigramModel) ContextSize() int {
	return m.contextSize
}

func (m *BigramModel) Loss(ctx context.Context, tokens []int) (float64, error) {
	if len(tokens) == 0 {
		return 0, fmt.Errorf("bigram model: empty sequence")
	}
	total := 0.0
	prev := EndOfText
	for i, t := range tokens {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		total -= math.Log(m.Prob(prev, t))
		prev = t
	}
	return total / float64(len(tokens)), nil
}

// Prob is the interpolated probability of next following prev. Always > 0.
func (m *BigramModel) Prob(prev, next int) float64 {
	c := m.counts
	unigram := float64(c.Unigrams[next]+1) / float64(c.Total+int64(c.VocabSize))
	ctxTotal := c.Context[prev]
	if ctxTotal == 0 {
		return unigram
	}
	bigram := float64(c.Bigrams[db.Bigram{Prev: prev, Next: next}]) / float64(ctxTotal)
	return m.lambda*bigram + (1-m.lambda)*unigram
}
