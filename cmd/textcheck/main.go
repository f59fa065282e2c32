package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"text_forensics/internal/aidetect"
	"text_forensics/internal/apperr"
	"text_forensics/internal/chunk"
	"text_forensics/internal/config"
	"text_forensics/internal/db"
	"text_forensics/internal/ingest"
	"text_forensics/internal/lm"
	"text_forensics/internal/logging"
	"text_forensics/internal/pipeline"
	"text_forensics/internal/plagiarism"
	"text_forensics/internal/similarity"
	"text_forensics/internal/workspace"
)

func help(w io.Writer) {
	fmt.Fprintln(w, "textcheck - document similarity and AI authorship heuristics")
	fmt.Fprintln(w, "Usage: textcheck SUBCOMMAND [OPTIONS] [FILES]")
	fmt.Fprintln(w, "Subcommands:")
	fmt.Fprintln(w, "    compare FILE FILE [FILE...]   TF-IDF cosine similarity between documents")
	fmt.Fprintln(w, "    analyze [-json] [FILE...]     perplexity, burstiness and top words per document")
	fmt.Fprintln(w, "    check FILE                    submit a document to the plagiarism service")
	fmt.Fprintln(w, "    import-model [-o PATH] FILE   write a counts JSON file into the SQLite model store")
	fmt.Fprintln(w, "    help                          list all commands")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		help(stderr)
		return 2
	}
	switch args[0] {
	case "help", "-h", "--help":
		help(stdout)
		return 0
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "configuration failed: %v\n", err)
		return 1
	}

	switch args[0] {
	case "compare":
		err = runCompare(args[1:], cfg, stdout)
	case "analyze":
		err = runAnalyze(ctx, args[1:], cfg, stdout, stderr)
	case "check":
		err = runCheck(ctx, args[1:], cfg, stdout)
	case "import-model":
		err = runImportModel(args[1:], cfg, stdout)
	default:
		fmt.Fprintf(stderr, "unknown subcommand %q\n", args[0])
		help(stderr)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		if apperr.IsKind(err, apperr.InputError) {
			return 2
		}
		return 1
	}
	return 0
}

func runCompare(args []string, cfg config.Config, stdout io.Writer) error {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	stem := fs.Bool("stem", cfg.Similarity.Stem, "stem English words before weighting")
	asJSON := fs.Bool("json", false, "print the similarity matrix as JSON")
	if err := fs.Parse(args); err != nil {
		return apperr.Input("compare", err.Error())
	}
	if fs.NArg() < 2 {
		return apperr.Input("compare", "please provide at least two files")
	}

	docs := make([]similarity.Document, 0, fs.NArg())
	for _, path := range fs.Args() {
		doc, err := ingest.ReadFile(path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	simCfg := cfg.Similarity
	simCfg.Stem = *stem
	scorer, err := similarity.NewScorer(simCfg)
	if err != nil {
		return err
	}
	matrix := scorer.CompareAll(docs)
	if *asJSON {
		return writeJSON(stdout, matrix)
	}
	for _, pair := range matrix.Pairs() {
		fmt.Fprintln(stdout, pair.String())
	}
	return nil
}

func runAnalyze(ctx context.Context, args []string, cfg config.Config, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print reports as JSON")
	segmentWords := fs.Int("segment-words", 0, "analyse long documents in segments of this many words (0 = whole document)")
	if err := fs.Parse(args); err != nil {
		return apperr.Input("analyze", err.Error())
	}

	inputs, err := analyzeInputs(fs.Args(), *segmentWords)
	if err != nil {
		return err
	}

	root, err := workspace.EnsureAt(cfg.Workspace)
	if err != nil {
		return err
	}
	out := io.Discard
	if cfg.Trace {
		out = stderr
	}
	logger, err := logging.New(out).WithSession(workspace.LogsDir(root))
	if err != nil {
		return err
	}

	svc, err := lm.Load(cfg.LM)
	if err != nil {
		logger.Risk("BOOT", "language model unavailable", err.Error())
		return err
	}
	logger.Info("BOOT", "language model loaded", fmt.Sprintf("path=%s tokenizer=%s", cfg.LM.ModelPath, svc.Tokenizer().Name()))

	analyzer := aidetect.NewAnalyzer(cfg.Detect, svc, logger)
	results, runErr := analyzeAll(ctx, analyzer, inputs, cfg.Workers)

	if *asJSON {
		reports := make([]aidetect.Report, 0, len(results))
		for _, r := range results {
			reports = append(reports, r.report)
		}
		if err := writeJSON(stdout, reports); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			printReport(stdout, r.report, r.err)
		}
		fmt.Fprintln(stdout, aidetect.Disclaimer)
	}
	return runErr
}

type analysis struct {
	report aidetect.Report
	err    error
	done   bool
}

// analyzeAll returns the analyses that ran, in input order, and every error from the run, including
// a cancellation that left inputs unanalysed.
func analyzeAll(ctx context.Context, analyzer *aidetect.Analyzer, inputs []aidetect.Input, workers int) ([]analysis, error) {
	slots := make([]analysis, len(inputs))
	errs := pipeline.Run(ctx, inputs, workers, func(ctx context.Context, i int, in aidetect.Input) error {
		report, err := analyzer.Analyze(ctx, in)
		slots[i] = analysis{report: report, err: err, done: true}
		return err
	})
	done := make([]analysis, 0, len(slots))
	for _, a := range slots {
		if a.done {
			done = append(done, a)
		}
	}
	return done, errors.Join(errs...)
}

func analyzeInputs(paths []string, segmentWords int) ([]aidetect.Input, error) {
	var docs []similarity.Document
	if len(paths) == 0 {
		var text string
		prompt := &survey.Multiline{Message: "Enter the text you want to analyze"}
		if err := survey.AskOne(prompt, &text); err != nil {
			return nil, fmt.Errorf("read text: %w", err)
		}
		docs = append(docs, similarity.Document{ID: "input", Text: text})
	}
	for _, path := range paths {
		doc, err := ingest.ReadFile(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	inputs := make([]aidetect.Input, 0, len(docs))
	for _, d := range docs {
		segments := chunk.SlidingWindow(d.Text, segmentWords, segmentWords/10)
		if segmentWords <= 0 || len(segments) <= 1 {
			inputs = append(inputs, aidetect.Input{DocumentID: d.ID, Text: d.Text})
			continue
		}
		for _, s := range segments {
			inputs = append(inputs, aidetect.Input{DocumentID: fmt.Sprintf("%s#%d", d.ID, s.Index), Text: s.Text})
		}
	}
	return inputs, nil
}

func printReport(w io.Writer, r aidetect.Report, err error) {
	fmt.Fprintf(w, "== %s ==\n", r.DocumentID)
	if r.Perplexity != nil {
		fmt.Fprintf(w, "Perplexity score: %.2f\n", *r.Perplexity)
	} else {
		fmt.Fprintln(w, "Perplexity score: n/a")
	}
	if r.Burstiness != nil {
		fmt.Fprintf(w, "Burstiness score: %.3f\n", *r.Burstiness)
	} else {
		fmt.Fprintln(w, "Burstiness score: n/a")
	}
	fmt.Fprintf(w, "Text analysis result: %s\n", r.Verdict.Label())
	if len(r.Histogram) > 0 {
		words := make([]string, 0, len(r.Histogram))
		for _, wc := range r.Histogram {
			words = append(words, fmt.Sprintf("%s(%d)", wc.Word, wc.Count))
		}
		fmt.Fprintf(w, "Top repeated words: %s\n", strings.Join(words, ", "))
	}
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	fmt.Fprintln(w)
}

func runCheck(ctx context.Context, args []string, cfg config.Config, stdout io.Writer) error {
	if len(args) != 1 {
		return apperr.Input("check", "please provide exactly one file")
	}
	doc, err := ingest.ReadFile(args[0])
	if err != nil {
		return err
	}
	client := plagiarism.NewClient(cfg.Plagiarism)
	switch out := client.Check(ctx, doc.Text).(type) {
	case plagiarism.Success:
		words := "N/A"
		if out.WordCount != nil {
			words = fmt.Sprint(*out.WordCount)
		}
		fmt.Fprintf(stdout, "Word count: %s\n", words)
		fmt.Fprintf(stdout, "Plagiarism: %.2f%%\n", out.PlagiarismPercent)
		for _, m := range out.Matches {
			fmt.Fprintf(stdout, "  %s (%.2f%%)\n", m.URL, m.Percent)
		}
		return nil
	case plagiarism.Failure:
		return apperr.External("check", "plagiarism service failed", out)
	default:
		return apperr.External("check", "unexpected plagiarism outcome", nil)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func runImportModel(args []string, cfg config.Config, stdout io.Writer) error {
	fs := flag.NewFlagSet("import-model", flag.ContinueOnError)
	out := fs.String("o", cfg.LM.ModelPath, "model file to write")
	force := fs.Bool("force", false, "replace an existing model file")
	if err := fs.Parse(args); err != nil {
		return apperr.Input("import-model", err.Error())
	}
	if fs.NArg() != 1 {
		return apperr.Input("import-model", "please provide exactly one counts file")
	}
	if _, err := os.Stat(*out); err == nil && !*force {
		return apperr.Input("import-model", fmt.Sprintf("%s already exists, pass -force to replace it", *out))
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("open counts: %w", err)
	}
	defer f.Close()
	counts, err := db.ReadCounts(f)
	if err != nil {
		return apperr.Input("import-model", err.Error())
	}
	if counts.Tokenizer != cfg.LM.Encoding {
		return apperr.Input("import-model", fmt.Sprintf("counts use tokenizer %s, configured tokenizer is %s", counts.Tokenizer, cfg.LM.Encoding))
	}

	if _, err := workspace.EnsureAt(cfg.Workspace); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	if err := db.SaveCounts(*out, counts); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Imported %d unigrams and %d bigrams into %s\n", len(counts.Unigrams), len(counts.Bigrams), *out)
	return nil
}
