package lm

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// The BPE ranks are embedded so loading a tokenizer never touches the network.
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// EndOfText is the GPT-2 <|endoftext|> id, used as the context of a sequence's first token.
const EndOfText = 50256

// DefaultEncoding is the GPT-2 byte-pair encoding.
const DefaultEncoding = "r50k_base"

type Tokenizer interface {
	Encode(text string) []int
	Name() string
}

// BPETokenizer wraps a tiktoken encoding. Special tokens in the input are encoded as plain text.
type BPETokenizer struct {
	name string
	enc  *tiktoken.Tiktoken
}

func NewBPETokenizer(encoding string) (*BPETokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &BPETokenizer{name: encoding, enc: enc}, nil
}

func (t *BPETokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *BPETokenizer) Name() string {
	return t.name
}
