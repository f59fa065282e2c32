package db

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func fixtureCounts() *Counts {
	c := NewCounts("r50k_base", 50257, 0.8)
	c.AddSequence(50256, []int{10, 11, 10, 11, 12})
	return c
}

func TestSaveAndLoadCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bigram.db")
	if err := SaveCounts(path, fixtureCounts()); err != nil {
		t.Fatalf("save counts: %v", err)
	}

	got, err := LoadCounts(path)
	if err != nil {
		t.Fatalf("load counts: %v", err)
	}
	if got.Tokenizer != "r50k_base" || got.VocabSize != 50257 || got.Lambda != 0.8 {
		t.Fatalf("unexpected meta: %+v", got)
	}
	if got.Total != 5 {
		t.Fatalf("expected 5 tokens, got %d", got.Total)
	}
	if got.Unigrams[10] != 2 || got.Unigrams[12] != 1 {
		t.Fatalf("unexpected unigrams: %v", got.Unigrams)
	}
	if got.Bigrams[Bigram{Prev: 10, Next: 11}] != 2 {
		t.Fatalf("expected bigram 10->11 twice, got %d", got.Bigrams[Bigram{Prev: 10, Next: 11}])
	}
	if got.Context[50256] != 1 || got.Context[11] != 2 {
		t.Fatalf("unexpected context totals: %v", got.Context)
	}

	rows, err := CountRows(path, "bigrams")
	if err != nil {
		t.Fatalf("count bigrams: %v", err)
	}
	if rows != 4 {
		t.Fatalf("expected 4 distinct bigrams, got %d", rows)
	}
}

func TestSaveCountsReplacesContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bigram.db")
	if err := SaveCounts(path, fixtureCounts()); err != nil {
		t.Fatalf("first save: %v", err)
	}
	small := NewCounts("r50k_base", 50257, 0.5)
	small.AddSequence(50256, []int{7})
	if err := SaveCounts(path, small); err != nil {
		t.Fatalf("second save: %v", err)
	}
	rows, err := CountRows(path, "unigrams")
	if err != nil {
		t.Fatalf("count unigrams: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 unigram after overwrite, got %d", rows)
	}
}

func TestOpenModelRefusesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")
	if _, err := OpenModel(path); !errors.Is(err, ErrModelMissing) {
		t.Fatalf("expected ErrModelMissing, got %v", err)
	}
	if _, err := LoadCounts(path); !errors.Is(err, ErrModelMissing) {
		t.Fatalf("expected ErrModelMissing from LoadCounts, got %v", err)
	}
}

func TestOpenModelIsReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bigram.db")
	if err := SaveCounts(path, fixtureCounts()); err != nil {
		t.Fatalf("save counts: %v", err)
	}
	conn, err := OpenModel(path)
	if err != nil {
		t.Fatalf("open model: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Exec(`INSERT INTO unigrams(token, count) VALUES(99, 1)`); err == nil {
		t.Fatal("expected write to a read-only model to fail")
	}
}

func TestReadCounts(t *testing.T) {
	body := `{"tokenizer":"r50k_base","vocab_size":50257,"lambda":0.8,
		"unigrams":[[10,2],[11,1]],"bigrams":[[50256,10,1],[10,11,1],[11,10,1]]}`
	counts, err := ReadCounts(strings.NewReader(body))
	if err != nil {
		t.Fatalf("read counts: %v", err)
	}
	if counts.Total != 3 || counts.Unigrams[10] != 2 {
		t.Fatalf("unexpected unigrams %v total=%d", counts.Unigrams, counts.Total)
	}
	if counts.Context[10] != 1 || counts.Bigrams[Bigram{Prev: 50256, Next: 10}] != 1 {
		t.Fatalf("unexpected bigrams %v", counts.Bigrams)
	}

	path := filepath.Join(t.TempDir(), "bigram.db")
	if err := SaveCounts(path, counts); err != nil {
		t.Fatalf("save counts: %v", err)
	}
	loaded, err := LoadCounts(path)
	if err != nil {
		t.Fatalf("load counts: %v", err)
	}
	if loaded.Total != counts.Total || len(loaded.Bigrams) != 3 {
		t.Fatalf("round trip lost counts: %+v", loaded)
	}
}

func TestReadCountsRejectsBadInput(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "not json", body: `vocab`},
		{name: "missing tokenizer", body: `{"vocab_size":10,"lambda":0.5,"unigrams":[[1,1]]}`},
		{name: "bad lambda", body: `{"tokenizer":"x","vocab_size":10,"lambda":1,"unigrams":[[1,1]]}`},
		{name: "no unigrams", body: `{"tokenizer":"x","vocab_size":10,"lambda":0.5}`},
		{name: "negative count", body: `{"tokenizer":"x","vocab_size":10,"lambda":0.5,"unigrams":[[1,-1]]}`},
		{name: "unknown field", body: `{"tokenizer":"x","vocab_size":10,"lambda":0.5,"unigrams":[[1,1]],"extra":1}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ReadCounts(strings.NewReader(tc.body)); err == nil {
				t.Errorf("Expected an error for %s", tc.name)
			}
		})
	}
}
