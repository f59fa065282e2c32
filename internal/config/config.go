package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"text_forensics/internal/aidetect"
	"text_forensics/internal/lm"
	"text_forensics/internal/plagiarism"
	"text_forensics/internal/similarity"
	"text_forensics/internal/workspace"
)

type Config struct {
	Workspace  string
	Workers    int
	Trace      bool
	Similarity similarity.Config
	Detect     aidetect.Config
	LM         lm.Config
	Plagiarism plagiarism.Config
}

// Load reads an optional .env from the working directory, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// LoadFiles is Load with explicit .env files. Variables already set in the environment win.
func LoadFiles(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		return Config{}, fmt.Errorf("load env files: %w", err)
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	root := getenv("TEXTCHECK_WORKSPACE", "")
	if root == "" {
		def, err := workspace.DefaultRoot()
		if err != nil {
			return Config{}, err
		}
		root = def
	}
	settings, err := workspace.LoadSettings(root)
	if err != nil {
		return Config{}, err
	}

	detect := aidetect.DefaultConfig()
	detect.PerplexityThreshold = getenvFloat("TEXTCHECK_PERPLEXITY_THRESHOLD", detect.PerplexityThreshold)
	detect.BurstinessThreshold = getenvFloat("TEXTCHECK_BURSTINESS_THRESHOLD", detect.BurstinessThreshold)
	detect.HistogramSize = getenvInt("TEXTCHECK_HISTOGRAM_SIZE", detect.HistogramSize)
	detect.MaxInputRunes = getenvInt("TEXTCHECK_MAX_INPUT_RUNES", detect.MaxInputRunes)

	model := lm.DefaultConfig()
	model.ModelPath = getenv("TEXTCHECK_MODEL_PATH", workspace.ModelPath(root, settings))
	model.Encoding = getenv("TEXTCHECK_TOKENIZER", settings.Tokenizer)
	model.InferenceTimeout = getenvMillis("TEXTCHECK_INFERENCE_TIMEOUT_MS", model.InferenceTimeout)
	model.MaxConcurrent = getenvInt("TEXTCHECK_MAX_CONCURRENT", model.MaxConcurrent)
	model.MaxTokens = getenvInt("TEXTCHECK_MAX_TOKENS", model.MaxTokens)

	sim := similarity.DefaultConfig()
	sim.Stem = getenvBool("TEXTCHECK_STEM", sim.Stem)

	plag := plagiarism.DefaultConfig()
	plag.Endpoint = getenv("TEXTCHECK_PLAGIARISM_URL", plag.Endpoint)
	plag.Timeout = getenvMillis("TEXTCHECK_PLAGIARISM_TIMEOUT_MS", plag.Timeout)

	return Config{
		Workspace:  root,
		Workers:    getenvInt("TEXTCHECK_WORKERS", 0),
		Trace:      getenvBool("TEXTCHECK_TRACE", false),
		Similarity: sim,
		Detect:     detect,
		LM:         model,
		Plagiarism: plag,
	}, nil
}

func getenv(name, fallback string) string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return raw
}

func getenvInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getenvFloat(name string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func getenvBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	return raw == "1" || raw == "true" || raw == "yes" || raw == "on"
}

func getenvMillis(name string, fallback time.Duration) time.Duration {
	ms := getenvInt(name, -1)
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
