package banking

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	domainerror "github.com/Staysteady/financial-dashboard-sub000/internal/domain/error"
)

func testClient(retries int) *Client {
	return NewClient(ClientConfig{
		Timeout:     5 * time.Second,
		Retries:     retries,
		RetryDelay:  time.Millisecond,
		MaxRequests: 100,
		Window:      time.Minute,
	})
}

func TestClient_Execute(t *testing.T) {
	t.Run("should return body and rate limit headers on success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RateLimit-Remaining", "42")
			w.Header().Set("X-RateLimit-Reset", "1700000000")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		resp, err := testClient(2).Execute(context.Background(), server.URL, RequestSpec{Method: http.MethodGet}, "hsbc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(resp.Body) != `{"ok":true}` {
			t.Errorf("unexpected body: %s", resp.Body)
		}
		if resp.RateLimit.Remaining != "42" {
			t.Errorf("expected rate limit remaining 42, got %q", resp.RateLimit.Remaining)
		}
	})

	t.Run("should retry server errors with backoff until success", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{}`))
		}))
		defer server.Close()

		_, err := testClient(3).Execute(context.Background(), server.URL, RequestSpec{Method: http.MethodGet}, "hsbc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := atomic.LoadInt32(&calls); got != 3 {
			t.Errorf("expected 3 attempts, got %d", got)
		}
	})

	t.Run("should give up after exhausting retries", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := testClient(2).Execute(context.Background(), server.URL, RequestSpec{Method: http.MethodGet}, "hsbc")
		if err == nil {
			t.Fatal("expected an error")
		}
		if code, _ := domainerror.BankingCode(err); code != domainerror.ErrCodeRequestFailed {
			t.Errorf("expected code %s, got %s", domainerror.ErrCodeRequestFailed, code)
		}
		if got := atomic.LoadInt32(&calls); got != 3 {
			t.Errorf("expected 3 attempts (initial plus 2 retries), got %d", got)
		}
	})

	t.Run("should not retry deterministic client errors and surface the bank code", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"Code":"403","Message":"forbidden","Errors":[{"ErrorCode":"UK.OBIE.Resource.NotFound","Message":"account unknown","Path":"Data.Account"}]}`))
		}))
		defer server.Close()

		_, err := testClient(3).Execute(context.Background(), server.URL, RequestSpec{Method: http.MethodGet}, "hsbc")
		if err == nil {
			t.Fatal("expected an error")
		}
		code, ok := domainerror.BankingCode(err)
		if !ok || code != "UK.OBIE.Resource.NotFound" {
			t.Errorf("expected the bank-declared error code, got %q", code)
		}
		var be *domainerror.BankingError
		if !errors.As(err, &be) || be.StatusCode != http.StatusForbidden {
			t.Errorf("expected HTTP status 403 on the error, got %+v", be)
		}
		if got := atomic.LoadInt32(&calls); got != 1 {
			t.Errorf("client error must not be retried, got %d attempts", got)
		}
	})

	t.Run("should fall back to a generic code for unstructured error bodies", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`not json`))
		}))
		defer server.Close()

		_, err := testClient(0).Execute(context.Background(), server.URL, RequestSpec{Method: http.MethodGet}, "hsbc")
		if code, _ := domainerror.BankingCode(err); code != "HTTP_404" {
			t.Errorf("expected HTTP_404, got %q", code)
		}
	})

	t.Run("should not retry a timed out request", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		client := NewClient(ClientConfig{
			Timeout:     20 * time.Millisecond,
			Retries:     3,
			RetryDelay:  time.Millisecond,
			MaxRequests: 100,
			Window:      time.Minute,
		})

		_, err := client.Execute(context.Background(), server.URL, RequestSpec{Method: http.MethodGet}, "hsbc")
		if err == nil {
			t.Fatal("expected a timeout error")
		}
		if code, _ := domainerror.BankingCode(err); code != domainerror.ErrCodeTimeout {
			t.Errorf("expected code %s, got %s", domainerror.ErrCodeTimeout, code)
		}
		if !errors.Is(err, domainerror.ErrRequestTimeout) {
			t.Error("expected the error to wrap ErrRequestTimeout")
		}
		if got := atomic.LoadInt32(&calls); got != 1 {
			t.Errorf("timed out request must not be retried, got %d attempts", got)
		}
	})

	t.Run("should reject immediately when the rate limit is exhausted", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			_, _ = w.Write([]byte(`{}`))
		}))
		defer server.Close()

		limiter := NewSlidingWindowLimiter(1, time.Minute)
		client := NewClientWithLimiter(ClientConfig{Timeout: time.Second, Retries: 2, RetryDelay: time.Millisecond}, limiter)

		if _, err := client.Execute(context.Background(), server.URL, RequestSpec{Method: http.MethodGet}, "hsbc"); err != nil {
			t.Fatalf("first request should pass: %v", err)
		}

		_, err := client.Execute(context.Background(), server.URL, RequestSpec{Method: http.MethodGet}, "hsbc")
		if !errors.Is(err, domainerror.ErrRateLimitExceeded) {
			t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
		}
		if got := atomic.LoadInt32(&calls); got != 1 {
			t.Errorf("rejected request must never reach the bank, got %d calls", got)
		}
	})

	t.Run("should stop retrying when the context is canceled during backoff", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewClient(ClientConfig{
			Timeout:     time.Second,
			Retries:     5,
			RetryDelay:  time.Hour,
			MaxRequests: 100,
			Window:      time.Minute,
		})

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		_, err := client.Execute(ctx, server.URL, RequestSpec{Method: http.MethodGet}, "hsbc")
		if err == nil {
			t.Fatal("expected an error")
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("cancellation should interrupt the backoff, took %v", elapsed)
		}
	})
}
