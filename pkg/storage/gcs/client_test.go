package gcs

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func staticTokens(token string) *tokenSource {
	return &tokenSource{
		fetch: func(context.Context) (string, time.Time, error) {
			return token, time.Now().Add(time.Hour), nil
		},
	}
}

func TestStoreUploadsAndReturnsLocator(t *testing.T) {
	var captured *http.Request
	client := &Client{
		bucket: "mayorista-reports",
		tokens: staticTokens("tok-123"),
		httpClient: &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			captured = req
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{"name":"cycles/report.csv"}`)),
				Header:     http.Header{},
			}, nil
		})},
	}

	locator, err := client.Store(context.Background(), []byte("a,b\n1,2\n"), "report.csv", "cycles", "text/csv")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	want := "https://storage.googleapis.com/mayorista-reports/cycles/report.csv"
	if locator != want {
		t.Fatalf("locator = %q, want %q", locator, want)
	}
	if captured == nil {
		t.Fatal("no request sent")
	}
	if got := captured.Header.Get("Authorization"); got != "Bearer tok-123" {
		t.Fatalf("authorization header = %q", got)
	}
	if got := captured.Header.Get("Content-Type"); got != "text/csv" {
		t.Fatalf("content type = %q", got)
	}
	if !strings.Contains(captured.URL.String(), "name=cycles%2Freport.csv") {
		t.Fatalf("upload URL missing object name: %s", captured.URL)
	}
}

func TestStoreRejectsEmptyData(t *testing.T) {
	client := &Client{bucket: "b", tokens: staticTokens("t"), httpClient: http.DefaultClient}
	if _, err := client.Store(context.Background(), nil, "x", "y", "text/plain"); err == nil {
		t.Fatal("expected error for empty artifact")
	}
}

func TestStoreSurfacesUploadFailure(t *testing.T) {
	client := &Client{
		bucket: "b",
		tokens: staticTokens("t"),
		httpClient: &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusForbidden,
				Status:     "403 Forbidden",
				Body:       io.NopCloser(strings.NewReader("denied")),
			}, nil
		})},
	}
	if _, err := client.Store(context.Background(), []byte("x"), "n", "f", "text/plain"); err == nil {
		t.Fatal("expected upload failure")
	}
}

func TestTokenSourceCachesUntilNearExpiry(t *testing.T) {
	calls := 0
	ts := &tokenSource{
		fetch: func(context.Context) (string, time.Time, error) {
			calls++
			return "cached", time.Now().Add(time.Hour), nil
		},
	}

	for i := 0; i < 3; i++ {
		token, err := ts.Token(context.Background())
		if err != nil {
			t.Fatalf("Token: %v", err)
		}
		if token != "cached" {
			t.Fatalf("token = %q", token)
		}
	}
	if calls != 1 {
		t.Fatalf("fetch called %d times, want 1", calls)
	}
}

func TestTokenSourceRefreshesExpired(t *testing.T) {
	calls := 0
	ts := &tokenSource{
		fetch: func(context.Context) (string, time.Time, error) {
			calls++
			return "fresh", time.Now().Add(30 * time.Second), nil
		},
	}

	for i := 0; i < 2; i++ {
		if _, err := ts.Token(context.Background()); err != nil {
			t.Fatalf("Token: %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("fetch called %d times, want 2", calls)
	}
}
