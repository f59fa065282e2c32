package similarity

import (
	"fmt"
	"math"
	"strconv"

	"github.com/tebeka/snowball"

	"text_forensics/internal/lexical"
)

type Document struct {
	ID   string `json:"id"`
	Text string `json:"-"`
}

type Result struct {
	A     string  `json:"a"`
	B     string  `json:"b"`
	Score float64 `json:"score"`
}

// Percent is the rounded score scaled for display.
func (r Result) Percent() float64 {
	return math.Round(r.Score*100*100) / 100
}

func (r Result) String() string {
	return fmt.Sprintf("%s is %s%% similar to %s", r.A, strconv.FormatFloat(r.Percent(), 'f', -1, 64), r.B)
}

// Matrix holds rounded pairwise scores; Scores[i][j] compares IDs[i] with IDs[j].
type Matrix struct {
	IDs    []string    `json:"ids"`
	Scores [][]float64 `json:"scores"`
}

// Pairs lists every unordered pair once, in input order.
func (m Matrix) Pairs() []Result {
	out := make([]Result, 0, len(m.IDs)*(len(m.IDs)-1)/2)
	for i := range m.IDs {
		for j := i + 1; j < len(m.IDs); j++ {
			out = append(out, Result{A: m.IDs[i], B: m.IDs[j], Score: m.Scores[i][j]})
		}
	}
	return out
}

type Config struct {
	MinTokenLen int
	Stem        bool
}

func DefaultConfig() Config {
	return Config{MinTokenLen: 2}
}

type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) (*Scorer, error) {
	if cfg.MinTokenLen <= 0 {
		cfg.MinTokenLen = 2
	}
	if cfg.Stem {
		stemmer, err := snowball.New("english")
		if err != nil {
			return nil, fmt.Errorf("init stemmer: %w", err)
		}
		stemmer.Close()
	}
	return &Scorer{cfg: cfg}, nil
}

// Compare scores two documents against a vocabulary fitted on exactly those two texts.
func (s *Scorer) Compare(a, b Document) Result {
	m := s.CompareAll([]Document{a, b})
	return Result{A: a.ID, B: b.ID, Score: m.Scores[0][1]}
}

// CompareAll fits one TF-IDF model over all documents and returns the full similarity matrix.
func (s *Scorer) CompareAll(docs []Document) Matrix {
	tokenized := make([][]string, len(docs))
	for i, d := range docs {
		tokenized[i] = s.tokenize(d.Text)
	}
	_, vectors := Fit(tokenized)

	m := Matrix{IDs: make([]string, len(docs)), Scores: make([][]float64, len(docs))}
	for i := range docs {
		m.IDs[i] = docs[i].ID
		m.Scores[i] = make([]float64, len(docs))
	}
	for i := range vectors {
		for j := i; j < len(vectors); j++ {
			score := Round2(Cosine(vectors[i], vectors[j]))
			m.Scores[i][j] = score
			m.Scores[j][i] = score
		}
	}
	return m
}

func (s *Scorer) tokenize(text string) []string {
	terms := lexical.Terms(text, s.cfg.MinTokenLen)
	if !s.cfg.Stem || len(terms) == 0 {
		return terms
	}
	stemmer, err := snowball.New("english")
	if err != nil {
		return terms
	}
	defer stemmer.Close()
	for i, t := range terms {
		terms[i] = stemmer.Stem(t)
	}
	return terms
}

// Compare scores two raw texts with the default configuration.
func Compare(text1, text2 string) float64 {
	s := &Scorer{cfg: DefaultConfig()}
	return s.Compare(Document{ID: "a", Text: text1}, Document{ID: "b", Text: text2}).Score
}

// Round2 rounds to two decimals, the precision shown to users.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
