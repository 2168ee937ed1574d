package samples

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/doccheck/pkg/logger"
)

// Submission outcomes.
const (
	outcomeMatch      = "match"
	outcomeUnexpected = "unexpected"
	outcomeError      = "error"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// getJSON fetches url and decodes a 200 response into v.
func (c *HTTPClient) getJSON(ctx context.Context, url string, v any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// mismatch describes a verdict that differs from the expectation.
type mismatch struct {
	person Person
	got    VerifyResponse
}

// submitPersons posts every person to /verify concurrently and compares the
// verdicts with the expectations.
func submitPersons(ctx context.Context, config *Config, persons []Person, stats *Stats) []mismatch {
	log := logger.Get().Named("samples")
	log.Info(ctx, "submitting persons", logger.Int("persons", len(persons)), logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/verify"

	var (
		submitted  int64
		verified   int64
		failed     int64
		unexpected int64
		errored    int64

		mu   sync.Mutex
		odds []mismatch
	)

	personChan := make(chan Person, config.Workers*2)
	var wg sync.WaitGroup

	for range config.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range personChan {
				got, outcome := submitSinglePerson(ctx, client, url, p)
				atomic.AddInt64(&submitted, 1)
				switch got.OverallStatus {
				case StatusVerified:
					atomic.AddInt64(&verified, 1)
				case StatusFailed:
					atomic.AddInt64(&failed, 1)
				}
				switch outcome {
				case outcomeUnexpected:
					atomic.AddInt64(&unexpected, 1)
					mu.Lock()
					odds = append(odds, mismatch{person: p, got: got})
					mu.Unlock()
				case outcomeError:
					atomic.AddInt64(&errored, 1)
				}
			}
		}()
	}

	go func() {
		defer close(personChan)
		for _, p := range persons {
			select {
			case <-ctx.Done():
				return
			case personChan <- p:
			}
		}
	}()

	wg.Wait()

	stats.Submitted = int(atomic.LoadInt64(&submitted))
	stats.Verified = int(atomic.LoadInt64(&verified))
	stats.Failed = int(atomic.LoadInt64(&failed))
	stats.Unexpected = int(atomic.LoadInt64(&unexpected))
	stats.Errors = int(atomic.LoadInt64(&errored))

	log.Info(ctx, "submission completed",
		logger.Int("verified", stats.Verified),
		logger.Int("failed", stats.Failed),
		logger.Int("unexpected", stats.Unexpected),
		logger.Int("errors", stats.Errors),
	)
	return odds
}

// submitSinglePerson submits one person and classifies the verdict.
func submitSinglePerson(ctx context.Context, client *HTTPClient, url string, p Person) (VerifyResponse, string) {
	resp, err := client.Post(ctx, url, p)
	if err != nil {
		return VerifyResponse{}, outcomeError
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		return VerifyResponse{}, outcomeError
	}
	var got VerifyResponse
	if err := json.Unmarshal(body, &got); err != nil {
		return VerifyResponse{}, outcomeError
	}
	if got.OverallStatus != p.Expected {
		return got, outcomeUnexpected
	}
	return got, outcomeMatch
}
