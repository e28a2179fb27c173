package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pix-a-paper/pix-a-paper/internal/version"
)

func TestNewUpstreamClientUsesTimeout(t *testing.T) {
	client := NewUpstreamClient(45*time.Second, time.Second)
	if client.Timeout != 45*time.Second {
		t.Fatalf("expected timeout 45s, got %s", client.Timeout)
	}
}

func TestNewUpstreamClientFallsBack(t *testing.T) {
	client := NewUpstreamClient(0, 10*time.Second)
	if client.Timeout != 10*time.Second {
		t.Fatalf("expected fallback timeout 10s, got %s", client.Timeout)
	}
}

func TestUpstreamClientSetsUserAgent(t *testing.T) {
	var got string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer upstream.Close()

	resp, err := NewUpstreamClient(time.Second, time.Second).Get(upstream.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if got != version.UserAgent() {
		t.Fatalf("expected user agent %s, got %s", version.UserAgent(), got)
	}
}
