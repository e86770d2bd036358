// Package performance fetches a cohort's previous assessment summary, which
// is fed back into the generation prompt.
package performance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Fetcher returns the raw performance summary for a cohort. A nil result
// with a nil error means there is no prior data.
type Fetcher interface {
	Fetch(ctx context.Context, cohortID string) (json.RawMessage, error)
}

// Config locates the assessment-performance API.
type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`

	// Optional lets a run continue without prior data when the fetch fails.
	Optional bool `mapstructure:"optional"`
}

func DefaultConfig() Config {
	return Config{Timeout: 30 * time.Second, Retries: 3}
}

// Enabled reports whether a base URL is configured.
func (c Config) Enabled() bool { return c.BaseURL != "" }

// StatusError is a non-2xx response from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("assessment performance API returned status %d: %s", e.StatusCode, e.Body)
}

// HTTPFetcher calls GET {base}/admin/assessment-performance/{cohortID}.
type HTTPFetcher struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher builds a fetcher that retries connection errors and 5xx
// responses. A nil logger silences retry logging.
func NewHTTPFetcher(cfg Config, logger *slog.Logger) (*HTTPFetcher, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("performance.base_url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("performance.base_url: %w", err)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.RetryMax = max(cfg.Retries, 0)
	retryClient.Logger = nil
	if logger != nil {
		retryClient.Logger = logger
	}

	stdClient := retryClient.StandardClient()
	if cfg.Timeout > 0 {
		stdClient.Timeout = cfg.Timeout
	}

	return &HTTPFetcher{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: stdClient,
	}, nil
}

// Fetch returns the response body. An empty cohort ID skips the call. A
// body of null, {}, [] or "" yields nil.
func (f *HTTPFetcher) Fetch(ctx context.Context, cohortID string) (json.RawMessage, error) {
	if cohortID == "" {
		return nil, nil
	}

	endpoint := f.baseURL + "/admin/assessment-performance/" + url.PathEscape(cohortID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating performance request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching performance for %s: %w", cohortID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading performance response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(bytes.TrimSpace(body)), 512)}
	}

	body = bytes.TrimSpace(body)
	if isEmpty(body) {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("performance response for %s is not valid JSON", cohortID)
	}
	return json.RawMessage(body), nil
}

func isEmpty(body []byte) bool {
	switch string(body) {
	case "", "null", "{}", "[]", `""`:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Static returns the same summary for every cohort. Dry runs and tests use it.
type Static json.RawMessage

func (s Static) Fetch(_ context.Context, cohortID string) (json.RawMessage, error) {
	if cohortID == "" || len(s) == 0 {
		return nil, nil
	}
	return json.RawMessage(s), nil
}
