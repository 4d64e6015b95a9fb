package imageapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func staticKey(key string) KeyFunc {
	return func() (string, error) { return key, nil }
}

func TestSupreme(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/supreme" || r.URL.Query().Get("text") != "hello world" || r.URL.Query().Get("dark") != "true" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	}))
	defer server.Close()

	client := New(server.URL+"/", staticKey("secret"), 5*time.Second)
	defer client.Close()

	img, err := client.Supreme(context.Background(), "hello world", SupremeOptions{Dark: true})
	if err != nil {
		t.Fatalf("supreme: %v", err)
	}
	if img.ContentType != "image/png" {
		t.Fatalf("unexpected content type %q", img.ContentType)
	}
	if img.Filename("supreme") != "supreme.png" {
		t.Fatalf("unexpected filename %q", img.Filename("supreme"))
	}
}

func TestStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := New(server.URL, staticKey("wrong"), 5*time.Second)
	_, err := client.Supreme(context.Background(), "x", SupremeOptions{})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error, got %v", err)
	}
}

func TestKeyReadPerRequest(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png"))
	}))
	defer server.Close()

	keys := []string{"first", "second"}
	calls := 0
	client := New(server.URL, func() (string, error) {
		key := keys[calls]
		calls++
		return key, nil
	}, 5*time.Second)

	for i := 0; i < 2; i++ {
		if _, err := client.Supreme(context.Background(), "x", SupremeOptions{}); err != nil {
			t.Fatalf("supreme: %v", err)
		}
	}
	if len(seen) != 2 || seen[0] != "first" || seen[1] != "second" {
		t.Fatalf("expected keys first, second; got %v", seen)
	}

	failing := New(server.URL, func() (string, error) { return "", errors.New("unreadable") }, 5*time.Second)
	if _, err := failing.Supreme(context.Background(), "x", SupremeOptions{}); err == nil {
		t.Fatalf("expected key error")
	}
	if len(seen) != 2 {
		t.Fatalf("no request should be sent without a key, got %d", len(seen))
	}
}
