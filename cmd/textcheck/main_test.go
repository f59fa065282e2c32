package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"text_forensics/internal/aidetect"
	"text_forensics/internal/db"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRunCompare(t *testing.T) {
	t.Setenv("TEXTCHECK_WORKSPACE", t.TempDir())
	dir := t.TempDir()
	a := writeFile(t, dir, "student_a.txt", "the mitochondria is the powerhouse of the cell")
	b := writeFile(t, dir, "student_b.txt", "the mitochondria is the powerhouse of the cell")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"compare", a, b}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr.String())
	}
	if got := strings.TrimSpace(stdout.String()); got != "student_a is 100% similar to student_b" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRunCompareNeedsTwoFiles(t *testing.T) {
	t.Setenv("TEXTCHECK_WORKSPACE", t.TempDir())
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"compare", "only.txt"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
}

func TestRunAnalyzeWithoutModelFails(t *testing.T) {
	ws := t.TempDir()
	t.Setenv("TEXTCHECK_WORKSPACE", ws)
	path := writeFile(t, t.TempDir(), "essay.txt", "Some words to analyze.")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"analyze", path}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "language model could not be loaded") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
	logs, err := os.ReadDir(filepath.Join(ws, "logs"))
	if err != nil || len(logs) != 1 {
		t.Fatalf("expected one session log, got %v (%v)", logs, err)
	}
}

func TestRunCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"percent":90,"words_count":4,"matches":[{"url":"https://example.org","percent":10}]}`))
	}))
	defer srv.Close()
	t.Setenv("TEXTCHECK_WORKSPACE", t.TempDir())
	t.Setenv("TEXTCHECK_PLAGIARISM_URL", srv.URL)
	path := writeFile(t, t.TempDir(), "essay.txt", "four words right here")

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"check", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr.String())
	}
	for _, want := range []string{"Word count: 4", "Plagiarism: 10.00%", "https://example.org (10.00%)"} {
		if !strings.Contains(stdout.String(), want) {
			t.Fatalf("expected %q in output %q", want, stdout.String())
		}
	}
}

func TestAnalyzeInputsSegmentsLongDocuments(t *testing.T) {
	words := make([]string, 250)
	for i := range words {
		words[i] = "word"
	}
	path := writeFile(t, t.TempDir(), "long.txt", strings.Join(words, " "))
	inputs, err := analyzeInputs([]string{path}, 100)
	if err != nil {
		t.Fatalf("analyze inputs: %v", err)
	}
	if len(inputs) != 3 || inputs[0].DocumentID != "long#0" {
		t.Fatalf("unexpected inputs %d %+v", len(inputs), inputs[0].DocumentID)
	}
}

type fixedScorer float64

func (f fixedScorer) Perplexity(ctx context.Context, text string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return float64(f), nil
}

func TestAnalyzeAllReportsEveryInput(t *testing.T) {
	analyzer := aidetect.NewAnalyzer(aidetect.DefaultConfig(), fixedScorer(40), nil)
	inputs := []aidetect.Input{
		{DocumentID: "a", Text: "One sentence here. Another one there."},
		{DocumentID: "b", Text: "Short text."},
	}
	results, err := analyzeAll(context.Background(), analyzer, inputs, 2)
	if err != nil {
		t.Fatalf("analyze all: %v", err)
	}
	if len(results) != 2 || results[0].report.DocumentID != "a" || results[1].report.DocumentID != "b" {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestAnalyzeAllCancelledSkipsInputs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	analyzer := aidetect.NewAnalyzer(aidetect.DefaultConfig(), fixedScorer(40), nil)
	inputs := []aidetect.Input{{DocumentID: "a", Text: "Some text."}, {DocumentID: "b", Text: "More text."}}

	results, err := analyzeAll(ctx, analyzer, inputs, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no reports for a cancelled run, got %+v", results)
	}
}

func TestRunHelpIgnoresBrokenSettings(t *testing.T) {
	ws := t.TempDir()
	t.Setenv("TEXTCHECK_WORKSPACE", ws)
	if err := os.MkdirAll(filepath.Join(ws, "configs"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(ws, "configs"), "settings.json", "{not json")

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"help"}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "import-model") {
		t.Fatalf("unexpected help %q", stdout.String())
	}
	if code := run(context.Background(), []string{"compare", "a.txt", "b.txt"}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1 for broken settings, got %d", code)
	}
}

func TestRunImportModel(t *testing.T) {
	ws := t.TempDir()
	t.Setenv("TEXTCHECK_WORKSPACE", ws)
	counts := writeFile(t, t.TempDir(), "counts.json",
		`{"tokenizer":"r50k_base","vocab_size":50257,"lambda":0.8,"unigrams":[[15496,3],[995,2]],"bigrams":[[50256,15496,3],[15496,995,2]]}`)

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"import-model", counts}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr.String())
	}
	model := filepath.Join(ws, "models", "bigram.db")
	loaded, err := db.LoadCounts(model)
	if err != nil {
		t.Fatalf("load imported model: %v", err)
	}
	if loaded.Total != 5 || loaded.Bigrams[db.Bigram{Prev: 15496, Next: 995}] != 2 {
		t.Fatalf("unexpected counts %+v", loaded)
	}

	stderr.Reset()
	if code := run(context.Background(), []string{"import-model", counts}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected exit 2 when the model exists, got %d", code)
	}
	if code := run(context.Background(), []string{"import-model", "-force", counts}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected -force to replace the model, got %d: %s", code, stderr.String())
	}
}

func TestRunImportModelRejectsOtherTokenizer(t *testing.T) {
	t.Setenv("TEXTCHECK_WORKSPACE", t.TempDir())
	counts := writeFile(t, t.TempDir(), "counts.json",
		`{"tokenizer":"cl100k_base","vocab_size":100277,"lambda":0.8,"unigrams":[[1,1]],"bigrams":[]}`)

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"import-model", counts}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
	if !strings.Contains(stderr.String(), "cl100k_base") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}
