package db

import (
	"encoding/json"
	"fmt"
	"io"
)

// CountsFile is the JSON exchange format for counts produced outside this repository:
//
//	{"tokenizer":"r50k_base","vocab_size":50257,"lambda":0.8,
//	 "unigrams":[[token,count],...],"bigrams":[[prev,next,count],...]}
//
// Bigrams whose prev is the <|endoftext|> id describe sequence starts.
type CountsFile struct {
	Tokenizer string     `json:"tokenizer"`
	VocabSize int        `json:"vocab_size"`
	Lambda    float64    `json:"lambda"`
	Unigrams  [][2]int64 `json:"unigrams"`
	Bigrams   [][3]int64 `json:"bigrams"`
}

// ReadCounts decodes and validates a CountsFile.
func ReadCounts(r io.Reader) (*Counts, error) {
	var file CountsFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode counts: %w", err)
	}
	if file.Tokenizer == "" {
		return nil, fmt.Errorf("counts: tokenizer is required")
	}
	if file.VocabSize <= 0 {
		return nil, fmt.Errorf("counts: vocab_size must be positive, got %d", file.VocabSize)
	}
	if file.Lambda < 0 || file.Lambda >= 1 {
		return nil, fmt.Errorf("counts: lambda %.3f outside [0,1)", file.Lambda)
	}
	if len(file.Unigrams) == 0 {
		return nil, fmt.Errorf("counts: no unigrams")
	}

	counts := NewCounts(file.Tokenizer, file.VocabSize, file.Lambda)
	for _, u := range file.Unigrams {
		if u[1] <= 0 {
			return nil, fmt.Errorf("counts: unigram %d has count %d", u[0], u[1])
		}
		counts.Unigrams[int(u[0])] += u[1]
		counts.Total += u[1]
	}
	for _, b := range file.Bigrams {
		if b[2] <= 0 {
			return nil, fmt.Errorf("counts: bigram %d->%d has count %d", b[0], b[1], b[2])
		}
		counts.Bigrams[Bigram{Prev: int(b[0]), Next: int(b[1])}] += b[2]
		counts.Context[int(b[0])] += b[2]
	}
	return counts, nil
}
