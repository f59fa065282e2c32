package lm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"text_forensics/internal/apperr"
	"text_forensics/internal/chunk"
	"text_forensics/internal/db"
)

const (
	DefaultInferenceTimeout = 10 * time.Second
	DefaultMaxConcurrent    = 1
	DefaultMaxTokens        = 32768
)

type Config struct {
	ModelPath        string
	Encoding         string
	ContextSize      int
	InferenceTimeout time.Duration
	MaxConcurrent    int
	MaxTokens        int
}

func DefaultConfig() Config {
	return Config{
		Encoding:         DefaultEncoding,
		ContextSize:      DefaultContextSize,
		InferenceTimeout: DefaultInferenceTimeout,
		MaxConcurrent:    DefaultMaxConcurrent,
		MaxTokens:        DefaultMaxTokens,
	}
}

// Service is the process-wide perplexity handle. Tokenizer and model are never mutated after
// construction; every forward pass holds one of MaxConcurrent slots.
type Service struct {
	tok   Tokenizer
	model Model
	cfg   Config
	slots chan struct{}
}

func NewService(tok Tokenizer, model Model, cfg Config) *Service {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.InferenceTimeout <= 0 {
		cfg.InferenceTimeout = DefaultInferenceTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &Service{
		tok:   tok,
		model: model,
		cfg:   cfg,
		slots: make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Load builds the tokenizer and reads the model file. Any failure is ResourceUnavailable.
func Load(cfg Config) (*Service, error) {
	const op = "lm.Load"
	counts, err := db.LoadCounts(cfg.ModelPath)
	if err != nil {
		return nil, apperr.Unavailable(op, "language model could not be loaded", err)
	}
	encoding := cfg.Encoding
	if encoding == "" {
		encoding = counts.Tokenizer
	}
	if counts.Tokenizer != "" && counts.Tokenizer != encoding {
		return nil, apperr.Unavailable(op, fmt.Sprintf("model was built for tokenizer %s, not %s", counts.Tokenizer, encoding), nil)
	}
	tok, err := NewBPETokenizer(encoding)
	if err != nil {
		return nil, apperr.Unavailable(op, "tokenizer could not be loaded", err)
	}
	model, err := NewBigramModel(counts, cfg.ContextSize)
	if err != nil {
		return nil, apperr.Unavailable(op, "language model is invalid", err)
	}
	return NewService(tok, model, cfg), nil
}

func (s *Service) Tokenizer() Tokenizer {
	return s.tok
}

// Perplexity is exp of the mean per-token loss of text. Texts longer than the model context are
// scored in consecutive windows and the losses averaged by window length.
func (s *Service) Perplexity(ctx context.Context, text string) (float64, error) {
	const op = "lm.Perplexity"
	tokens := s.tok.Encode(text)
	if len(tokens) == 0 {
		return 0, apperr.Input(op, "text produced no tokens")
	}
	if len(tokens) > s.cfg.MaxTokens {
		return 0, apperr.Input(op, fmt.Sprintf("text has %d tokens, limit is %d", len(tokens), s.cfg.MaxTokens))
	}

	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return 0, apperr.Unavailable(op, "no inference slot available", ctx.Err())
	}
	defer func() { <-s.slots }()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.InferenceTimeout)
	defer cancel()

	loss, err := s.loss(ctx, tokens)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return 0, apperr.Unavailable(op, "inference did not finish in time", err)
		}
		return 0, apperr.Unavailable(op, "inference failed", err)
	}
	ppl := math.Exp(loss)
	if math.IsNaN(ppl) || math.IsInf(ppl, 0) {
		return 0, apperr.Degenerate(op, fmt.Sprintf("perplexity overflow for loss %.3f", loss))
	}
	return ppl, nil
}

func (s *Service) loss(ctx context.Context, tokens []int) (float64, error) {
	windows := chunk.TokenWindows(len(tokens), s.model.ContextSize(), 0)
	total := 0.0
	for _, w := range windows {
		l, err := s.model.Loss(ctx, tokens[w.Start:w.End])
		if err != nil {
			return 0, fmt.Errorf("window %d-%d: %w", w.Start, w.End, err)
		}
		total += l * float64(w.Len())
	}
	return total / float64(len(tokens)), nil
}

// Shared lazily loads one Service for the whole process.
type Shared struct {
	cfg  Config
	once sync.Once
	svc  *Service
	err  error
}

func NewShared(cfg Config) *Shared {
	return &Shared{cfg: cfg}
}

func (s *Shared) Get() (*Service, error) {
	s.once.Do(func() {
		s.svc, s.err = Load(s.cfg)
	})
	return s.svc, s.err
}

// Perplexity loads the service on first use.
func (s *Shared) Perplexity(ctx context.Context, text string) (float64, error) {
	svc, err := s.Get()
	if err != nil {
		return 0, err
	}
	return svc.Perplexity(ctx, text)
}
