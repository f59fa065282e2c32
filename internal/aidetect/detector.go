package aidetect

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"text_forensics/internal/apperr"
	"text_forensics/internal/lexical"
)

// Both thresholds are a fixed, uncalibrated rule of thumb. The verdict is not a validated classifier.
const (
	DefaultPerplexityThreshold = 25000.0
	DefaultBurstinessThreshold = 0.5
	DefaultMaxInputRunes       = 200000
)

const Disclaimer = "AI authorship detectors can help flag text for review, but their results are not reliable on their own. " +
	"They produce false positives and false negatives, so use the verdict alongside human judgment and manual verification."

type Verdict string

const (
	LikelyAI    Verdict = "likely_ai"
	LikelyHuman Verdict = "likely_human"
)

func (v Verdict) Label() string {
	switch v {
	case LikelyAI:
		return "AI generated content"
	case LikelyHuman:
		return "Likely not generated by AI"
	default:
		return "Undetermined"
	}
}

type Input struct {
	DocumentID string `json:"document_id"`
	Text       string `json:"text"`
}

type ErrorEntry struct {
	Stage     string `json:"stage"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Retryable bool   `json:"retryable"`
}

type SpanTrace struct {
	Name       string `json:"name"`
	DurationMs int64  `json:"duration_ms"`
	Status     string `json:"status"`
}

// Report is the outcome of one run. Perplexity is nil when the model could not score the text and
// Verdict is then empty. Burstiness is nil when the text has no tokens to measure.
type Report struct {
	RunID      string                `json:"run_id"`
	DocumentID string                `json:"document_id"`
	Perplexity *float64              `json:"perplexity"`
	Burstiness *float64              `json:"burstiness"`
	Histogram  []lexical.WordCount   `json:"histogram"`
	Verdict    Verdict               `json:"verdict,omitempty"`
	WordCount  int                   `json:"word_count"`
	Sentences  lexical.SentenceStats `json:"sentences"`
	Errors     []ErrorEntry          `json:"errors"`
	Traces     []SpanTrace           `json:"traces"`
}

type Config struct {
	PerplexityThreshold float64
	BurstinessThreshold float64
	HistogramSize       int
	MaxInputRunes       int
}

func DefaultConfig() Config {
	return Config{
		PerplexityThreshold: DefaultPerplexityThreshold,
		BurstinessThreshold: DefaultBurstinessThreshold,
		HistogramSize:       lexical.DefaultTopWords,
		MaxInputRunes:       DefaultMaxInputRunes,
	}
}

type PerplexityScorer interface {
	Perplexity(ctx context.Context, text string) (float64, error)
}

type Logger interface {
	Log(level, stage, message, detail string)
}

type Analyzer struct {
	cfg    Config
	scorer PerplexityScorer
	logger Logger
}

// NewAnalyzer wires the heuristic to a perplexity scorer. logger may be nil.
func NewAnalyzer(cfg Config, scorer PerplexityScorer, logger Logger) *Analyzer {
	def := DefaultConfig()
	if cfg.PerplexityThreshold <= 0 {
		cfg.PerplexityThreshold = def.PerplexityThreshold
	}
	if cfg.BurstinessThreshold <= 0 {
		cfg.BurstinessThreshold = def.BurstinessThreshold
	}
	if cfg.HistogramSize <= 0 {
		cfg.HistogramSize = def.HistogramSize
	}
	if cfg.MaxInputRunes <= 0 {
		cfg.MaxInputRunes = def.MaxInputRunes
	}
	return &Analyzer{cfg: cfg, scorer: scorer, logger: logger}
}

// Decide applies the threshold rule. A missing burstiness never counts as low.
func Decide(perplexity float64, burstiness *float64, cfg Config) Verdict {
	if burstiness != nil && perplexity > cfg.PerplexityThreshold && *burstiness < cfg.BurstinessThreshold {
		return LikelyAI
	}
	return LikelyHuman
}

// Analyze scores one text. When perplexity fails the report still carries the lexical results and
// the error is returned alongside it.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (Report, error) {
	const op = "aidetect.Analyze"
	report := Report{
		RunID:      uuid.NewString(),
		DocumentID: in.DocumentID,
		Histogram:  []lexical.WordCount{},
		Errors:     []ErrorEntry{},
		Traces:     []SpanTrace{},
	}

	trimmed := strings.TrimSpace(in.Text)
	if trimmed == "" {
		err := apperr.Input(op, "text is empty")
		report.Errors = append(report.Errors, entryFor("bad_input", err))
		return report, err
	}
	if n := utf8.RuneCountInString(in.Text); n > a.cfg.MaxInputRunes {
		err := apperr.Input(op, fmt.Sprintf("text has %d characters, limit is %d", n, a.cfg.MaxInputRunes))
		report.Errors = append(report.Errors, entryFor("bad_input", err))
		return report, err
	}

	start := time.Now()
	report.WordCount = len(strings.Fields(in.Text))
	a.log("ANALYSIS", "AI", "authorship run started", fmt.Sprintf("run_id=%s document_id=%s words=%d", report.RunID, in.DocumentID, report.WordCount))

	var pplErr error
	withSpan(&report, "perplexity", func() error {
		if a.scorer == nil {
			pplErr = apperr.Unavailable(op, "no language model configured", nil)
			return pplErr
		}
		ppl, err := a.scorer.Perplexity(ctx, in.Text)
		if err != nil {
			pplErr = fmt.Errorf("score perplexity: %w", err)
			return pplErr
		}
		report.Perplexity = &ppl
		return nil
	})

	withSpan(&report, "burstiness", func() error {
		score, ok := lexical.Burstiness(in.Text)
		if !ok {
			return apperr.Degenerate(op, "no tokens to measure burstiness")
		}
		report.Burstiness = &score
		return nil
	})

	withSpan(&report, "histogram", func() error {
		report.Histogram = lexical.TopWords(in.Text, a.cfg.HistogramSize)
		return nil
	})

	withSpan(&report, "sentence_stats", func() error {
		report.Sentences = lexical.Sentences(in.Text)
		return nil
	})

	if report.Perplexity != nil {
		withSpan(&report, "verdict", func() error {
			report.Verdict = Decide(*report.Perplexity, report.Burstiness, a.cfg)
			return nil
		})
	}

	a.log("ANALYSIS", "AI", "authorship run completed", fmt.Sprintf("run_id=%s document_id=%s perplexity=%s burstiness=%s verdict=%s errors=%d duration_ms=%d",
		report.RunID, in.DocumentID, formatOptional(report.Perplexity), formatOptional(report.Burstiness), report.Verdict, len(report.Errors), time.Since(start).Milliseconds()))
	if pplErr != nil {
		a.log("RISK", "AI", "perplexity unavailable", pplErr.Error())
		return report, pplErr
	}
	return report, nil
}

func (a *Analyzer) log(level, stage, message, detail string) {
	if a.logger != nil {
		a.logger.Log(level, stage, message, detail)
	}
}

func withSpan(report *Report, name string, fn func() error) {
	start := time.Now()
	status := "ok"
	if err := fn(); err != nil {
		status = "error"
		report.Errors = append(report.Errors, entryFor(name, err))
	}
	report.Traces = append(report.Traces, SpanTrace{
		Name:       name,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     status,
	})
}

func entryFor(stage string, err error) ErrorEntry {
	kind := string(apperr.KindOf(err))
	if kind == "" {
		kind = "exception"
	}
	return ErrorEntry{
		Stage:     stage,
		Message:   err.Error(),
		Type:      kind,
		Retryable: apperr.Retryable(err),
	}
}

func formatOptional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", *v)
}
