package genius

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	prev := initialBackoff
	initialBackoff = time.Millisecond
	t.Cleanup(func() { initialBackoff = prev })

	client, err := NewClient(Config{
		AccessToken: "test-token",
		BaseURL:     server.URL,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "missing access token",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name:    "defaults applied",
			cfg:     Config{AccessToken: "token"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.baseURL != DefaultBaseURL {
				t.Errorf("expected base URL %s, got %s", DefaultBaseURL, client.baseURL)
			}
			if client.userAgent != DefaultUserAgent {
				t.Errorf("expected user agent %s, got %s", DefaultUserAgent, client.userAgent)
			}
			if client.maxRetries != defaultMaxRetries {
				t.Errorf("expected %d retries, got %d", defaultMaxRetries, client.maxRetries)
			}
			if client.Artists() == nil || client.Search() == nil {
				t.Error("expected services to be initialised")
			}
		})
	}
}

func TestCall_SendsBearerToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("expected bearer token, got %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != DefaultUserAgent {
			t.Errorf("expected user agent %q, got %q", DefaultUserAgent, got)
		}
		_, _ = w.Write([]byte(`{"meta":{"status":200},"response":{"artist":{"id":1,"name":"A"}}}`))
	})

	if _, err := client.Artists().Get(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCall_RetriesTemporaryErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"meta":{"status":429,"message":"slow down"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"meta":{"status":200},"response":{"artist":{"id":7,"name":"Seven"}}}`))
	})

	artist, err := client.Artists().Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artist.Name != "Seven" {
		t.Errorf("expected artist Seven, got %s", artist.Name)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

func TestCall_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Artists().Get(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !IsTemporary(err) {
		t.Errorf("expected temporary error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != defaultMaxRetries {
		t.Errorf("expected %d calls, got %d", defaultMaxRetries, got)
	}
}

func TestCall_DoesNotRetryPermanentErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantFound   bool
	}{
		{
			name:        "not found envelope",
			status:      http.StatusNotFound,
			body:        `{"meta":{"status":404,"message":"Not found"}}`,
			wantMessage: "Not found",
			wantFound:   true,
		},
		{
			name:        "oauth error",
			status:      http.StatusUnauthorized,
			body:        `{"error":"invalid_token","error_description":"The access token provided is expired"}`,
			wantMessage: "The access token provided is expired",
		},
		{
			name:        "non-json body",
			status:      http.StatusForbidden,
			body:        `<html>nope</html>`,
			wantMessage: "Forbidden",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Artists().Get(context.Background(), 1)
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if apiErr.Status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, apiErr.Status)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("expected message %q, got %q", tt.wantMessage, apiErr.Message)
			}
			if errors.Is(err, ErrNotFound) != tt.wantFound {
				t.Errorf("errors.Is(err, ErrNotFound) = %v, want %v", !tt.wantFound, tt.wantFound)
			}
			if got := atomic.LoadInt32(&calls); got != 1 {
				t.Errorf("expected 1 call, got %d", got)
			}
		})
	}
}

func TestCall_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Artists().Get(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"abc", 0},
		{"-1", 0},
		{"2", 2 * time.Second},
		{"120", 30 * time.Second},
	}
	for _, tt := range tests {
		if got := retryAfter(tt.in); got != tt.want {
			t.Errorf("retryAfter(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNextBackoff(t *testing.T) {
	if got := nextBackoff(time.Second); got != 2*time.Second {
		t.Errorf("expected 2s, got %s", got)
	}
	if got := nextBackoff(20 * time.Second); got != 30*time.Second {
		t.Errorf("expected cap at 30s, got %s", got)
	}
}
