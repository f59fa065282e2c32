package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"text_forensics/internal/aidetect"
	"text_forensics/internal/lm"
	"text_forensics/internal/workspace"
)

func TestFromEnvDefaults(t *testing.T) {
	root := t.TempDir()
	t.Setenv("TEXTCHECK_WORKSPACE", root)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.Workspace != root {
		t.Fatalf("expected workspace %s, got %s", root, cfg.Workspace)
	}
	if cfg.LM.ModelPath != filepath.Join(root, "models", workspace.DefaultModelFile) {
		t.Fatalf("unexpected model path %s", cfg.LM.ModelPath)
	}
	if cfg.LM.Encoding != lm.DefaultEncoding || cfg.LM.MaxConcurrent != 1 {
		t.Fatalf("unexpected lm config %+v", cfg.LM)
	}
	if cfg.Detect.PerplexityThreshold != aidetect.DefaultPerplexityThreshold || cfg.Detect.BurstinessThreshold != aidetect.DefaultBurstinessThreshold {
		t.Fatalf("unexpected thresholds %+v", cfg.Detect)
	}
	if cfg.Similarity.Stem || cfg.Trace {
		t.Fatalf("expected stemming and tracing off by default")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("TEXTCHECK_WORKSPACE", t.TempDir())
	t.Setenv("TEXTCHECK_MODEL_PATH", "/models/custom.db")
	t.Setenv("TEXTCHECK_INFERENCE_TIMEOUT_MS", "2500")
	t.Setenv("TEXTCHECK_MAX_CONCURRENT", "4")
	t.Setenv("TEXTCHECK_PERPLEXITY_THRESHOLD", "1000.5")
	t.Setenv("TEXTCHECK_HISTOGRAM_SIZE", "not-a-number")
	t.Setenv("TEXTCHECK_STEM", "yes")
	t.Setenv("TEXTCHECK_PLAGIARISM_URL", "http://localhost:9999/check")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.LM.ModelPath != "/models/custom.db" {
		t.Fatalf("unexpected model path %s", cfg.LM.ModelPath)
	}
	if cfg.LM.InferenceTimeout != 2500*time.Millisecond || cfg.LM.MaxConcurrent != 4 {
		t.Fatalf("unexpected lm config %+v", cfg.LM)
	}
	if cfg.Detect.PerplexityThreshold != 1000.5 {
		t.Fatalf("unexpected perplexity threshold %v", cfg.Detect.PerplexityThreshold)
	}
	if cfg.Detect.HistogramSize != 15 {
		t.Fatalf("expected fallback histogram size, got %d", cfg.Detect.HistogramSize)
	}
	if !cfg.Similarity.Stem {
		t.Fatal("expected stemming enabled")
	}
	if cfg.Plagiarism.Endpoint != "http://localhost:9999/check" {
		t.Fatalf("unexpected endpoint %s", cfg.Plagiarism.Endpoint)
	}
}

func TestLoadFilesReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "TEXTCHECK_WORKSPACE=" + dir + "\nTEXTCHECK_WORKERS=3\n"
	if err := os.WriteFile(envFile, []byte(content), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	// Registered with t.Setenv so the values godotenv sets are restored afterwards.
	t.Setenv("TEXTCHECK_WORKSPACE", "")
	t.Setenv("TEXTCHECK_WORKERS", "")
	os.Unsetenv("TEXTCHECK_WORKSPACE")
	os.Unsetenv("TEXTCHECK_WORKERS")

	cfg, err := LoadFiles(envFile)
	if err != nil {
		t.Fatalf("load files: %v", err)
	}
	if cfg.Workspace != dir || cfg.Workers != 3 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadFilesMissingFile(t *testing.T) {
	if _, err := LoadFiles(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Fatal("expected error for missing env file")
	}
}
