// Package webhook hands finished deliverables to the insight service over HTTP.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
)

// SignatureHeader carries the HMAC-SHA256 of the request body when a secret is set.
const SignatureHeader = "X-Rfpflow-Signature"

// EventDeliverableReady is the event type of every payload.
const EventDeliverableReady = "deliverable.ready"

// Payload is the JSON body posted to the insight endpoint.
type Payload struct {
	EventType string                `json:"event_type"`
	ProjectID string                `json:"project_id"`
	Timestamp time.Time             `json:"timestamp"`
	Data      *analysis.Deliverable `json:"data"`
}

// Option configures an InsightClient.
type Option func(*InsightClient)

// WithHTTPClient replaces the default client with its 10s timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(ic *InsightClient) { ic.client = c }
}

// WithRetry sets the attempt count and the initial backoff delay.
func WithRetry(attempts int, initialDelay time.Duration) Option {
	return func(ic *InsightClient) {
		ic.retryConfig.MaxAttempts = attempts
		ic.retryConfig.InitialDelay = initialDelay
	}
}

// WithDeadLetters records deliveries that exhausted their retries.
func WithDeadLetters(store *DeadLetterStore) Option {
	return func(ic *InsightClient) { ic.deadLetter = store }
}

// InsightClient is a DeliverableStore that posts deliverables to a webhook.
type InsightClient struct {
	url         string
	secret      string
	client      *http.Client
	retryConfig retry.Config
	deadLetter  *DeadLetterStore
	now         func() time.Time
}

// NewInsightClient creates a client for url. An empty secret disables signing.
func NewInsightClient(url, secret string, opts ...Option) *InsightClient {
	ic := &InsightClient{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  time.Second,
			BackoffPolicy: retry.BackoffExponential,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(ic)
	}
	return ic
}

// SaveDeliverable posts d and returns an error once every attempt failed.
func (c *InsightClient) SaveDeliverable(ctx context.Context, projectID string, d *analysis.Deliverable) error {
	body, err := json.Marshal(Payload{
		EventType: EventDeliverableReady,
		ProjectID: projectID,
		Timestamp: c.now().UTC(),
		Data:      d,
	})
	if err != nil {
		return fmt.Errorf("marshal deliverable: %w", err)
	}

	retryer := retry.New[struct{}](c.retryConfig)
	_, err = retryer.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.send(ctx, body)
	})
	if err == nil {
		return nil
	}

	err = fmt.Errorf("deliver to insight service: %w", err)
	if c.deadLetter != nil {
		if dlErr := c.deadLetter.Append(DeadLetter{
			Timestamp: c.now().UTC(),
			URL:       c.url,
			ProjectID: projectID,
			RunID:     d.RunID,
			Payload:   string(body),
			Error:     err.Error(),
			Attempts:  c.retryConfig.MaxAttempts,
		}); dlErr != nil {
			err = errors.Join(err, fmt.Errorf("record dead letter: %w", dlErr))
		}
	}
	return err
}

func (c *InsightClient) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Rfpflow-Webhook/1.0")
	if c.secret != "" {
		req.Header.Set(SignatureHeader, Sign(body, c.secret))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign computes the HMAC-SHA256 of payload using secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
