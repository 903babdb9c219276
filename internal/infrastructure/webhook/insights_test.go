package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
)

func testDeliverable() *analysis.Deliverable {
	return &analysis.Deliverable{
		RunID:      "acme_rfp-1",
		ProjectID:  "acme",
		DocumentID: "rfp-1",
		Status:     analysis.RunSucceeded,
		Summary:    "Cloud migration",
	}
}

func TestInsightClient_DeliverySigned(t *testing.T) {
	secret := "test-secret"
	var gotSig string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	c := NewInsightClient(server.URL, secret, WithRetry(1, time.Millisecond))
	if err := c.SaveDeliverable(context.Background(), "acme", testDeliverable()); err != nil {
		t.Fatalf("SaveDeliverable: %v", err)
	}

	if want := Sign(gotBody, secret); gotSig != want {
		t.Errorf("signature = %q, want %q", gotSig, want)
	}

	var p Payload
	if err := json.Unmarshal(gotBody, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.EventType != EventDeliverableReady || p.ProjectID != "acme" {
		t.Errorf("payload = %+v", p)
	}
	if p.Data == nil || p.Data.Summary != "Cloud migration" {
		t.Errorf("payload data = %+v", p.Data)
	}
}

func TestInsightClient_NoSecretNoSignature(t *testing.T) {
	var gotSig string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
	}))
	defer server.Close()

	c := NewInsightClient(server.URL, "", WithRetry(1, time.Millisecond))
	if err := c.SaveDeliverable(context.Background(), "acme", testDeliverable()); err != nil {
		t.Fatalf("SaveDeliverable: %v", err)
	}
	if gotSig != "" {
		t.Errorf("signature = %q, want none", gotSig)
	}
}

func TestInsightClient_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewInsightClient(server.URL, "", WithRetry(3, time.Millisecond))
	if err := c.SaveDeliverable(context.Background(), "acme", testDeliverable()); err != nil {
		t.Fatalf("SaveDeliverable: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestInsightClient_Non2xxDeadLetters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dl := NewDeadLetterStore(filepath.Join(t.TempDir(), "deadletters.jsonl"))
	c := NewInsightClient(server.URL, "", WithRetry(2, time.Millisecond), WithDeadLetters(dl))

	err := c.SaveDeliverable(context.Background(), "acme", testDeliverable())
	if err == nil {
		t.Fatal("Expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error = %v, want status code", err)
	}

	entries, _ := dl.ReadAll()
	if len(entries) != 1 {
		t.Fatalf("dead letters = %d, want 1", len(entries))
	}
	if entries[0].RunID != "acme_rfp-1" || entries[0].Attempts != 2 {
		t.Errorf("dead letter = %+v", entries[0])
	}
}

func TestInsightClient_DeadLetterFailureReported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	dl := NewDeadLetterStore(filepath.Join(t.TempDir(), "missing", "deadletters.jsonl"))
	c := NewInsightClient(server.URL, "", WithRetry(1, time.Millisecond), WithDeadLetters(dl))

	err := c.SaveDeliverable(context.Background(), "acme", testDeliverable())
	if err == nil {
		t.Fatal("Expected error for 502 response")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("error = %v, want status code", err)
	}
	if !strings.Contains(err.Error(), "record dead letter") {
		t.Errorf("error = %v, want dead letter failure", err)
	}
}

func TestInsightClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewInsightClient(url, "", WithRetry(1, time.Millisecond))
	if err := c.SaveDeliverable(context.Background(), "acme", testDeliverable()); err == nil {
		t.Error("Expected error for closed server")
	}
}
