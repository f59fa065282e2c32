package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const BaseDirName = "TextCheck"

const DefaultModelFile = "bigram.db"

type Settings struct {
	Tokenizer string `json:"tokenizer"`
	ModelFile string `json:"model_file"`
}

func DefaultSettings() Settings {
	return Settings{Tokenizer: "r50k_base", ModelFile: DefaultModelFile}
}

func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(home, BaseDirName), nil
}

func EnsureDefault() (string, error) {
	root, err := DefaultRoot()
	if err != nil {
		return "", err
	}
	return EnsureAt(root)
}

// EnsureAt creates the workspace layout under base and writes default settings if none exist.
func EnsureAt(base string) (string, error) {
	paths := []string{
		filepath.Join(base, "configs"),
		filepath.Join(base, "models"),
		LogsDir(base),
	}

	for _, p := range paths {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", p, err)
		}
	}

	settingsPath := SettingsPath(base)
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		raw, marshalErr := json.MarshalIndent(DefaultSettings(), "", "  ")
		if marshalErr != nil {
			return "", fmt.Errorf("marshal settings: %w", marshalErr)
		}
		if writeErr := os.WriteFile(settingsPath, raw, 0o644); writeErr != nil {
			return "", fmt.Errorf("write settings: %w", writeErr)
		}
	}

	return base, nil
}

func SettingsPath(base string) string {
	return filepath.Join(base, "configs", "settings.json")
}

func LogsDir(base string) string {
	return filepath.Join(base, "logs")
}

// LoadSettings reads settings.json, falling back to defaults for a missing file or empty fields.
func LoadSettings(base string) (Settings, error) {
	settings := DefaultSettings()
	raw, err := os.ReadFile(SettingsPath(base))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings: %w", err)
	}
	var stored Settings
	if err := json.Unmarshal(raw, &stored); err != nil {
		return settings, fmt.Errorf("parse settings: %w", err)
	}
	if strings.TrimSpace(stored.Tokenizer) != "" {
		settings.Tokenizer = stored.Tokenizer
	}
	if strings.TrimSpace(stored.ModelFile) != "" {
		settings.ModelFile = stored.ModelFile
	}
	return settings, nil
}

// ModelPath resolves the model file named in settings. Relative names live under models/.
func ModelPath(base string, settings Settings) string {
	name := settings.ModelFile
	if name == "" {
		name = DefaultModelFile
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(base, "models", name)
}
