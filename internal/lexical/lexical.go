package lexical

import (
	_ "embed"
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

//go:embed stopwords_en.json
var stopwordsJSON []byte

// DefaultTopWords is the histogram size shown on the dashboard.
const DefaultTopWords = 15

var (
	sentenceEnd = regexp.MustCompile(`[.!?]+`)
	// Words keep internal apostrophes ("don't"); every run of other non-space symbols is its own token.
	wordOrPunct = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*|[^\s\p{L}\p{N}]+`)
	termPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

var stopwords = loadStopwords()

type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

type SentenceStats struct {
	Sentences          int     `json:"sentences"`
	MeanSentenceLength float64 `json:"mean_sentence_length"`
	SentenceLengthSD   float64 `json:"sentence_length_sd"`
}

func loadStopwords() map[string]struct{} {
	var raw []string
	if err := json.Unmarshal(stopwordsJSON, &raw); err != nil {
		panic("lexical: bad embedded stopword list: " + err.Error())
	}
	out := make(map[string]struct{}, len(raw))
	for _, w := range raw {
		out[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return out
}

func IsStopword(word string) bool {
	_, ok := stopwords[strings.ToLower(word)]
	return ok
}

// Tokens lower-cases text and splits it into word and punctuation tokens. No stopword removal.
func Tokens(text string) []string {
	return wordOrPunct.FindAllString(strings.ToLower(text), -1)
}

// Terms returns lower-cased runs of at least minLen word characters, the token rule of a default
// scikit-learn TfidfVectorizer when minLen is 2.
func Terms(text string, minLen int) []string {
	if minLen < 1 {
		minLen = 1
	}
	found := termPattern.FindAllString(strings.ToLower(text), -1)
	out := found[:0]
	for _, t := range found {
		if len([]rune(t)) >= minLen {
			out = append(out, t)
		}
	}
	return out
}

// ContentWords splits on whitespace, lower-cases, trims surrounding punctuation and drops stopwords.
func ContentWords(text string) []string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(strings.ToLower(f), func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if w == "" {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Burstiness is the share of distinct tokens that occur more than once.
// ok is false when the text has no tokens at all and the ratio is undefined.
func Burstiness(text string) (score float64, ok bool) {
	return BurstinessOf(Tokens(text))
}

func BurstinessOf(tokens []string) (float64, bool) {
	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[t]++
	}
	if len(freq) == 0 {
		return 0, false
	}
	repeated := 0
	for _, c := range freq {
		if c > 1 {
			repeated++
		}
	}
	return float64(repeated) / float64(len(freq)), true
}

// TopWords counts ContentWords and returns the k most frequent, ties in first-seen order.
func TopWords(text string, k int) []WordCount {
	if k <= 0 {
		k = DefaultTopWords
	}
	counts := map[string]int{}
	order := []string{}
	for _, w := range ContentWords(text) {
		if _, seen := counts[w]; !seen {
			order = append(order, w)
		}
		counts[w]++
	}
	out := make([]WordCount, 0, len(order))
	for _, w := range order {
		out = append(out, WordCount{Word: w, Count: counts[w]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func Sentences(text string) SentenceStats {
	parts := sentenceEnd.Split(text, -1)
	lengths := make([]float64, 0, len(parts))
	for _, s := range parts {
		count := float64(len(Terms(s, 1)))
		if count > 0 {
			lengths = append(lengths, count)
		}
	}
	if len(lengths) == 0 {
		return SentenceStats{}
	}

	total := 0.0
	for _, l := range lengths {
		total += l
	}
	mean := total / float64(len(lengths))
	if len(lengths) == 1 {
		return SentenceStats{Sentences: 1, MeanSentenceLength: mean}
	}

	var variance float64
	for _, l := range lengths {
		d := l - mean
		variance += d * d
	}
	variance /= float64(len(lengths))
	return SentenceStats{
		Sentences:          len(lengths),
		MeanSentenceLength: mean,
		SentenceLengthSD:   math.Sqrt(variance),
	}
}
