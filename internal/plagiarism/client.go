package plagiarism

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultEndpoint = "https://papersowl.com/plagiarism-checker-send-data"
	DefaultTimeout  = 30 * time.Second
	maxBodyBytes    = 4 << 20
)

type Config struct {
	Endpoint string
	Timeout  time.Duration
	Locale   string
}

func DefaultConfig() Config {
	return Config{Endpoint: DefaultEndpoint, Timeout: DefaultTimeout, Locale: "en"}
}

// Outcome is either Success or Failure.
type Outcome interface {
	outcome()
}

type Match struct {
	URL     string  `json:"url"`
	Percent float64 `json:"percent"`
}

// Success holds a validated response. WordCount is nil when the service did not report one.
// PlagiarismPercent is 100 minus the service's uniqueness percent.
type Success struct {
	WordCount         *int    `json:"word_count"`
	PlagiarismPercent float64 `json:"plagiarism_percent"`
	Matches           []Match `json:"matches"`
}

type Failure struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (Success) outcome() {}
func (Failure) outcome() {}

func (f Failure) Error() string {
	return f.Message
}

func (f Failure) IsRetryable() bool {
	return f.Retryable
}

type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	def := DefaultConfig()
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Locale == "" {
		cfg.Locale = def.Locale
	}
	return &Client{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// Check submits text to the service. It never returns nil.
func (c *Client) Check(ctx context.Context, text string) Outcome {
	if strings.TrimSpace(text) == "" {
		return Failure{Message: "text is empty"}
	}
	vals := url.Values{}
	vals.Set("is_free", "false")
	vals.Set("plagchecker_locale", c.cfg.Locale)
	vals.Set("product_paper_type", "1")
	vals.Set("title", "")
	vals.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, strings.NewReader(vals.Encode()))
	if err != nil {
		return Failure{Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.client.Do(req)
	if err != nil {
		return Failure{Message: fmt.Sprintf("send request: %v", err), Retryable: true}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	_ = resp.Body.Close()
	if err != nil {
		return Failure{Message: fmt.Sprintf("read response: %v", err), Retryable: true}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Failure{
			Message:   fmt.Sprintf("status %d", resp.StatusCode),
			Retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}
	return ParseResponse(body)
}

type rawResponse struct {
	Percent    *number    `json:"percent"`
	WordsCount *number    `json:"words_count"`
	Matches    []rawMatch `json:"matches"`
}

type rawMatch struct {
	URL     *string `json:"url"`
	Percent *number `json:"percent"`
}

// ParseResponse validates a response body and converts it into an Outcome.
func ParseResponse(body []byte) Outcome {
	var raw rawResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&raw); err != nil {
		return Failure{Message: fmt.Sprintf("decode response: %v", err)}
	}
	if raw.Percent == nil {
		return Failure{Message: "response has no percent field"}
	}

	out := Success{
		PlagiarismPercent: 100 - float64(*raw.Percent),
		Matches:           make([]Match, 0, len(raw.Matches)),
	}
	if raw.WordsCount != nil {
		n := int(*raw.WordsCount)
		out.WordCount = &n
	}
	for i, m := range raw.Matches {
		if m.URL == nil || m.Percent == nil {
			return Failure{Message: fmt.Sprintf("match %d is missing url or percent", i)}
		}
		out.Matches = append(out.Matches, Match{URL: *m.URL, Percent: float64(*m.Percent)})
	}
	return out
}

// number accepts a JSON number or a string holding one.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return fmt.Errorf("number is null")
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse number %s: %w", string(data), err)
	}
	*n = number(v)
	return nil
}
