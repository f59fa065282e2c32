package ingest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"text_forensics/internal/apperr"
	"text_forensics/internal/similarity"
)

// MaxBytes caps a single upload.
const MaxBytes = 5 << 20

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode turns uploaded bytes into a document. Input must be UTF-8, or UTF-8/UTF-16 with a byte
// order mark. The document ID is the file name without its extension.
func Decode(name string, raw []byte) (similarity.Document, error) {
	const op = "ingest.Decode"
	if len(raw) > MaxBytes {
		return similarity.Document{}, apperr.Input(op, fmt.Sprintf("%s is %d bytes, limit is %d", name, len(raw), MaxBytes))
	}

	var payload []byte
	if hasUTF16BOM(raw) {
		decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
		if err != nil {
			return similarity.Document{}, apperr.Input(op, fmt.Sprintf("%s: non-text input: %v", name, err))
		}
		payload = decoded
	} else {
		payload = bytes.TrimPrefix(raw, bomUTF8)
	}
	// A byte order mark does not vouch for the bytes after it.
	if !utf8.Valid(payload) {
		return similarity.Document{}, apperr.Input(op, fmt.Sprintf("%s: non-text input: invalid UTF-8", name))
	}
	text := string(payload)
	if strings.ContainsRune(text, 0) {
		return similarity.Document{}, apperr.Input(op, fmt.Sprintf("%s: non-text input: contains NUL bytes", name))
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return similarity.Document{}, apperr.Input(op, fmt.Sprintf("%s is empty", name))
	}
	return similarity.Document{ID: DocumentID(name), Text: text}, nil
}

func DocumentID(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func ReadFile(path string) (similarity.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return similarity.Document{}, fmt.Errorf("stat file: %w", err)
	}
	if info.Size() > MaxBytes {
		return similarity.Document{}, apperr.Input("ingest.ReadFile", fmt.Sprintf("%s is %d bytes, limit is %d", path, info.Size(), MaxBytes))
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return similarity.Document{}, fmt.Errorf("read file: %w", err)
	}
	return Decode(path, raw)
}

func hasUTF16BOM(raw []byte) bool {
	return bytes.HasPrefix(raw, bomUTF16LE) || bytes.HasPrefix(raw, bomUTF16BE)
}
