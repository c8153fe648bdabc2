package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/leapstack-labs/leapetl/pkg/core"
)

// DefaultAPITimeout bounds an API request when no timeout is configured.
const DefaultAPITimeout = 10 * time.Second

// APIExtractor fetches JSON records over HTTP GET.
type APIExtractor struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
	// RecordPath is the dotted path to the record array in the response.
	RecordPath string

	// Client overrides the HTTP client; a client with Timeout is used otherwise.
	Client *http.Client
	Logger *slog.Logger
}

// Describe returns the request URL.
func (e *APIExtractor) Describe() string { return e.URL }

// Extract performs the request and flattens the returned records.
func (e *APIExtractor) Extract(ctx context.Context) (*core.Table, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultAPITimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range e.Headers {
		req.Header.Set(k, v)
	}

	client := e.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", e.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &HTTPError{URL: e.URL, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if ct := resp.Header.Get("Content-Type"); !isJSONContentType(ct) {
		return nil, fmt.Errorf("request %s: unexpected content type %q", e.URL, ct)
	}

	doc, err := decodeOrdered(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode response from %s: %w", e.URL, err)
	}
	objs, err := recordsAt(doc, e.RecordPath)
	if err != nil {
		return nil, fmt.Errorf("response from %s: %w", e.URL, err)
	}
	t, err := tableFromObjects(objs)
	if err != nil {
		return nil, err
	}

	if e.Logger != nil {
		e.Logger.Debug("extracted api response",
			slog.String("url", e.URL),
			slog.Int("status", resp.StatusCode),
			slog.Int("rows", t.NumRows()),
			slog.Duration("elapsed", time.Since(start)))
	}
	return t, nil
}

// HTTPError is returned for responses with a status of 400 or above.
type HTTPError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("request %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("request %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// isJSONContentType accepts application/json and +json media types in any case.
func isJSONContentType(ct string) bool {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
