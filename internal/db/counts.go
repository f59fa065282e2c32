package db

import (
	"fmt"
	"strconv"
)

// Bigram is a (prev, next) token id pair.
type Bigram struct {
	Prev int
	Next int
}

// Counts is an in-memory copy of a model file.
type Counts struct {
	Tokenizer string
	VocabSize int
	Lambda    float64
	Unigrams  map[int]int64
	Bigrams   map[Bigram]int64
	// Context holds the number of bigrams that start at each prev token.
	Context map[int]int64
	Total   int64
}

func NewCounts(tokenizer string, vocabSize int, lambda float64) *Counts {
	return &Counts{
		Tokenizer: tokenizer,
		VocabSize: vocabSize,
		Lambda:    lambda,
		Unigrams:  map[int]int64{},
		Bigrams:   map[Bigram]int64{},
		Context:   map[int]int64{},
	}
}

// AddSequence counts one token sequence, with bos as the context of its first token.
func (c *Counts) AddSequence(bos int, tokens []int) {
	prev := bos
	for _, t := range tokens {
		c.Unigrams[t]++
		c.Total++
		c.Bigrams[Bigram{Prev: prev, Next: t}]++
		c.Context[prev]++
		prev = t
	}
}

type metaRow struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

type unigramRow struct {
	Token int   `db:"token"`
	Count int64 `db:"count"`
}

type bigramRow struct {
	Prev  int   `db:"prev"`
	Next  int   `db:"next"`
	Count int64 `db:"count"`
}

// LoadCounts reads the whole model file at path into memory.
func LoadCounts(path string) (*Counts, error) {
	conn, err := OpenModel(path)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var meta []metaRow
	if err := conn.Select(&meta, `SELECT key, value FROM meta`); err != nil {
		return nil, fmt.Errorf("select meta: %w", err)
	}
	counts := NewCounts("", 0, 0)
	for _, m := range meta {
		switch m.Key {
		case "tokenizer":
			counts.Tokenizer = m.Value
		case "vocab_size":
			n, err := strconv.Atoi(m.Value)
			if err != nil {
				return nil, fmt.Errorf("parse vocab_size: %w", err)
			}
			counts.VocabSize = n
		case "lambda":
			f, err := strconv.ParseFloat(m.Value, 64)
			if err != nil {
				return nil, fmt.Errorf("parse lambda: %w", err)
			}
			counts.Lambda = f
		}
	}

	var unigrams []unigramRow
	if err := conn.Select(&unigrams, `SELECT token, count FROM unigrams`); err != nil {
		return nil, fmt.Errorf("select unigrams: %w", err)
	}
	for _, u := range unigrams {
		counts.Unigrams[u.Token] = u.Count
		counts.Total += u.Count
	}

	var bigrams []bigramRow
	if err := conn.Select(&bigrams, `SELECT prev, next, count FROM bigrams`); err != nil {
		return nil, fmt.Errorf("select bigrams: %w", err)
	}
	for _, b := range bigrams {
		counts.Bigrams[Bigram{Prev: b.Prev, Next: b.Next}] = b.Count
		counts.Context[b.Prev] += b.Count
	}
	return counts, nil
}

// SaveCounts replaces the contents of the model file at path with counts.
func SaveCounts(path string, counts *Counts) error {
	conn, err := Create(path)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"meta", "unigrams", "bigrams"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	meta := []metaRow{
		{Key: "tokenizer", Value: counts.Tokenizer},
		{Key: "vocab_size", Value: strconv.Itoa(counts.VocabSize)},
		{Key: "lambda", Value: strconv.FormatFloat(counts.Lambda, 'g', -1, 64)},
	}
	for _, m := range meta {
		if _, err := tx.NamedExec(`INSERT INTO meta(key, value) VALUES(:key, :value)`, m); err != nil {
			return fmt.Errorf("insert meta: %w", err)
		}
	}
	for token, n := range counts.Unigrams {
		if _, err := tx.NamedExec(`INSERT INTO unigrams(token, count) VALUES(:token, :count)`, unigramRow{Token: token, Count: n}); err != nil {
			return fmt.Errorf("insert unigram: %w", err)
		}
	}
	for pair, n := range counts.Bigrams {
		row := bigramRow{Prev: pair.Prev, Next: pair.Next, Count: n}
		if _, err := tx.NamedExec(`INSERT INTO bigrams(prev, next, count) VALUES(:prev, :next, :count)`, row); err != nil {
			return fmt.Errorf("insert bigram: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func CountRows(path, table string) (int, error) {
	conn, err := OpenModel(path)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	var count int
	if err := conn.Get(&count, `SELECT COUNT(*) FROM `+table); err != nil {
		return 0, fmt.Errorf("scan count: %w", err)
	}
	return count, nil
}
