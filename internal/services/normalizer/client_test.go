package normalizer_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"signflow/internal/services"
	"signflow/internal/services/normalizer"
	"signflow/internal/services/remote"
)

func TestNormalizeSendsLanguageAndText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("lang") != "en" || q.Get("text") != "helo wrld" {
			t.Errorf("unexpected query %v", q)
		}
		_, _ = w.Write([]byte(`{"text":"Hello world"}`))
	}))
	defer server.Close()

	client := normalizer.New(server.URL, remote.New("normalizer"))
	got, err := client.Normalize(context.Background(), "en", "helo wrld")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got != "Hello world" {
		t.Fatalf("unexpected suggestion %q", got)
	}
}

func TestNormalizeMissingText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := normalizer.New(server.URL, remote.New("normalizer")).Normalize(context.Background(), "en", "x")
	if !errors.Is(err, services.ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}
