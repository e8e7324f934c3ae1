package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("https://api.example.com", "test-key")

		shared := Endpoint{BaseURL: "https://api.example.com", APIKey: "test-key"}
		if c.fast != shared || c.detailed != shared || c.feed != shared {
			t.Errorf("endpoints = %v/%v/%v, want all %v", c.fast, c.detailed, c.feed, shared)
		}
		if c.httpClient.Timeout != 15*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 15*time.Second)
		}
		if c.maxRetries != 2 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 2)
		}
	})

	t.Run("with options", func(t *testing.T) {
		c := NewClient("https://api.example.com", "",
			WithTimeout(5*time.Second),
			WithRetries(5, 2*time.Second),
		)
		if c.httpClient.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 5*time.Second)
		}
		if c.maxRetries != 5 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 5)
		}
		if c.retryBackoff != 2*time.Second {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, 2*time.Second)
		}
	})
}

func TestClient_SplitsEndpointFamilies(t *testing.T) {
	newFamilyServer := func(wantKey string, body string) (*httptest.Server, *atomic.Int64) {
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			if got := r.Header.Get("Authorization"); got != "Bearer "+wantKey {
				t.Errorf("Authorization = %q, want Bearer %s", got, wantKey)
			}
			w.Write([]byte(body))
		}))
		return srv, &calls
	}

	fastSrv, fastCalls := newFamilyServer("fast-key", `{"data":{}}`)
	defer fastSrv.Close()
	detailedSrv, detailedCalls := newFamilyServer("detailed-key", `{"data":{}}`)
	defer detailedSrv.Close()
	feedSrv, feedCalls := newFamilyServer("feed-key", `{"funding":[],"openInterest":[],"longShort":[]}`)
	defer feedSrv.Close()

	c := NewClient("http://unused.invalid", "",
		WithFastEndpoint(Endpoint{BaseURL: fastSrv.URL, APIKey: "fast-key"}),
		WithDetailedEndpoint(Endpoint{BaseURL: detailedSrv.URL, APIKey: "detailed-key"}),
		WithFeedEndpoint(Endpoint{BaseURL: feedSrv.URL, APIKey: "feed-key"}),
	)

	ctx := context.Background()
	if _, err := c.FetchFast(ctx, []string{"BTC"}); err != nil {
		t.Fatalf("FetchFast failed: %v", err)
	}
	if _, err := c.FetchDetailed(ctx, []string{"BTC"}); err != nil {
		t.Fatalf("FetchDetailed failed: %v", err)
	}
	if _, err := c.FetchDerivatives(ctx); err != nil {
		t.Fatalf("FetchDerivatives failed: %v", err)
	}

	if got := fastCalls.Load(); got != 1 {
		t.Errorf("fast provider calls = %d, want 1", got)
	}
	if got := detailedCalls.Load(); got != 1 {
		t.Errorf("detailed provider calls = %d, want 1", got)
	}
	if got := feedCalls.Load(); got != 1 {
		t.Errorf("feed provider calls = %d, want 1", got)
	}
}

func TestClient_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", WithRetries(3, time.Millisecond))

	_, err := c.FetchFast(context.Background(), []string{"BTC"})
	if err != nil {
		t.Fatalf("FetchFast failed after retries: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", WithRetries(3, time.Millisecond))

	_, err := c.FetchFast(context.Background(), []string{"BTC"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 (404 is not retryable)", got)
	}
}

func TestClient_MalformedJSONIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": not-json`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")

	if _, err := c.FetchFast(context.Background(), []string{"BTC"}); err == nil {
		t.Error("malformed JSON should surface as a fetch error")
	}
}

func TestAPIError_IsRetryable(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{500, true},
		{503, true},
		{429, true},
		{404, false},
		{400, false},
		{401, false},
	}

	for _, tt := range tests {
		e := &APIError{StatusCode: tt.status}
		if got := e.IsRetryable(); got != tt.want {
			t.Errorf("IsRetryable(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
