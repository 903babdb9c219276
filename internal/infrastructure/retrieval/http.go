// Package retrieval provides ContextRetriever implementations.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
)

// RetrievalError is a non-2xx answer from the retrieval service.
type RetrievalError struct {
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval error (status %d): %s", e.StatusCode, e.Message)
}

type contextResponse struct {
	Context string `json:"context"`
}

// HTTPRetriever fetches context from GET {base}/documents/{id}/context.
// A 404 means the document has no related context.
type HTTPRetriever struct {
	baseURL     string
	client      *http.Client
	retryConfig retry.Config
}

// NewHTTPRetriever creates a retriever for baseURL.
func NewHTTPRetriever(baseURL string, client *http.Client) *HTTPRetriever {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPRetriever{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  50 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

func (r *HTTPRetriever) RetrieveContext(ctx context.Context, documentID string) (string, error) {
	endpoint := r.baseURL + "/documents/" + url.PathEscape(documentID) + "/context"

	retryer := retry.New[string](r.retryConfig)
	var permanent error
	text, err := retryer.Do(ctx, func(ctx context.Context) (string, error) {
		text, err := r.fetch(ctx, endpoint)
		if re, ok := err.(*RetrievalError); ok && !re.Retryable {
			permanent = err
			return "", nil
		}
		return text, err
	})
	if permanent != nil {
		return "", permanent
	}
	if err != nil {
		return "", fmt.Errorf("retrieve context for %s: %w", documentID, err)
	}
	return text, nil
}

func (r *HTTPRetriever) fetch(ctx context.Context, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &RetrievalError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Retryable:  isRetryableStatusCode(resp.StatusCode),
		}
	}

	var out contextResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &RetrievalError{StatusCode: resp.StatusCode, Message: "invalid response: " + err.Error()}
	}
	return out.Context, nil
}

func isRetryableStatusCode(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
