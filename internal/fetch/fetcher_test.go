package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/douwatch/douwatch/internal/logger"
)

func newTestFetcher(attempts int) *Fetcher {
	return New(Options{
		Timeout:     5 * time.Second,
		UserAgent:   "test-agent",
		MaxAttempts: attempts,
	}, logger.NewNop())
}

func disableSleep(t *testing.T) {
	t.Helper()
	orig := sleepFunc
	sleepFunc = func(ctx context.Context, d time.Duration) error { return nil }
	t.Cleanup(func() { sleepFunc = orig })
}

func TestFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body>OK</body></html>")
	}))
	defer server.Close()

	body, err := newTestFetcher(3).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if body != "<html><body>OK</body></html>" {
		t.Errorf("Unexpected body: %s", body)
	}
}

func TestFetch_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	disableSleep(t)

	body, err := newTestFetcher(3).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if body != "<html>OK</html>" {
		t.Errorf("Unexpected body: %s", body)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetch_PermanentFailureNoRetry(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	disableSleep(t)

	_, err := newTestFetcher(3).Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 1 attempt for permanent failure, got %d", attempts.Load())
	}
	if IsTransient(err) {
		t.Error("404 must not be classified as transient")
	}
	var fe *Error
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusNotFound {
		t.Errorf("Expected *fetch.Error with status 404, got %v", err)
	}
}

func TestFetch_RetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	disableSleep(t)

	_, err := newTestFetcher(3).Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error after all retries exhausted")
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
	if !IsTransient(err) {
		t.Errorf("Exhausted 503 should surface as transient, got %v", err)
	}
}

func TestFetch_429Retried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	disableSleep(t)

	body, err := newTestFetcher(3).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after 429 retry, got %v", err)
	}
	if body != "<html>OK</html>" {
		t.Errorf("Unexpected body: %s", body)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts.Load())
	}
}

func TestFetch_ConnectionErrorTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	disableSleep(t)

	_, err := newTestFetcher(2).Fetch(context.Background(), url)
	if err == nil {
		t.Fatal("Expected error for refused connection")
	}
	if !IsTransient(err) {
		t.Errorf("Connection failure should be transient, got %v", err)
	}
}

func TestFetch_BrowserHeaders(t *testing.T) {
	var gotUA, gotAccept, gotUpgrade string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		gotUpgrade = r.Header.Get("Upgrade-Insecure-Requests")
		_, _ = fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	if _, err := newTestFetcher(1).Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if gotUA != "test-agent" {
		t.Errorf("Unexpected User-Agent: %s", gotUA)
	}
	if gotAccept == "" || gotUpgrade != "1" {
		t.Errorf("Expected browser-like headers, got Accept=%q Upgrade-Insecure-Requests=%q", gotAccept, gotUpgrade)
	}
}

func TestFetch_ThrottleAppliesOnFirstAttempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	var slept []time.Duration
	origSleep := sleepFunc
	sleepFunc = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	origJitter := jitterFunc
	jitterFunc = func() float64 { return 0.5 }
	t.Cleanup(func() {
		sleepFunc = origSleep
		jitterFunc = origJitter
	})

	f := New(Options{
		Timeout:     5 * time.Second,
		UserAgent:   "test-agent",
		MaxAttempts: 3,
		ThrottleMin: 5 * time.Second,
		ThrottleMax: 12 * time.Second,
	}, logger.NewNop())

	if _, err := f.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(slept) != 1 {
		t.Fatalf("Expected exactly one throttle sleep, got %d", len(slept))
	}
	// Midpoint of the 5s to 12s window with jitter pinned at 0.5.
	if slept[0] != 8500*time.Millisecond {
		t.Errorf("Unexpected throttle delay: %v", slept[0])
	}
}

func TestFetch_BackoffDoublesAndCaps(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	var slept []time.Duration
	origSleep := sleepFunc
	sleepFunc = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	t.Cleanup(func() { sleepFunc = origSleep })

	f := New(Options{
		Timeout:        5 * time.Second,
		UserAgent:      "test-agent",
		MaxAttempts:    4,
		RetryBaseDelay: 2 * time.Second,
		RetryMaxDelay:  5 * time.Second,
	}, logger.NewNop())

	if _, err := f.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second, 5 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("Expected %d backoff sleeps, got %d (%v)", len(want), len(slept), slept)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("Backoff %d: expected %v, got %v", i, want[i], slept[i])
		}
	}
}
