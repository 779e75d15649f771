package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Acme GmbH | About us</title></head>
<body>
<article>
<h1>About Acme GmbH</h1>
<p>Acme GmbH is a manufacturer of industrial sensors headquartered in Hamburg.
The company operates plants in Hamburg and Dresden and employs several hundred
people across both sites.</p>
</article>
</body>
</html>`

func TestFetch_ExtractsReadableText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	f := NewFetcher(NewFetcherParams{Timeout: 5 * time.Second})
	page, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if !strings.Contains(page.Text, "industrial sensors") {
		t.Fatalf("Fetch() text does not contain expected content: %q", page.Text)
	}
	if page.URL != srv.URL {
		t.Fatalf("Fetch() url = %q, want %q", page.URL, srv.URL)
	}
	if page.FetchedAt.IsZero() {
		t.Fatalf("Fetch() fetched_at not set")
	}
}

func TestFetch_CachesByURL(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	f := NewFetcher(NewFetcherParams{Timeout: 5 * time.Second})
	for i := 0; i < 3; i++ {
		if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
			t.Fatalf("Fetch() attempt %d error = %v", i, err)
		}
	}

	if got := hits.Load(); got != 1 {
		t.Fatalf("server hit %d times, want 1", got)
	}
}

func TestFetch_NoEvidenceOnNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	f := NewFetcher(NewFetcherParams{Timeout: 5 * time.Second, Retries: 1})
	if _, err := f.Fetch(context.Background(), srv.URL); !errors.Is(err, ErrNoEvidence) {
		t.Fatalf("Fetch() error = %v, want ErrNoEvidence", err)
	}
}

func TestFetch_NoEvidenceOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewFetcher(NewFetcherParams{Timeout: 5 * time.Second, Retries: 1})
	if _, err := f.Fetch(context.Background(), srv.URL); !errors.Is(err, ErrNoEvidence) {
		t.Fatalf("Fetch() error = %v, want ErrNoEvidence", err)
	}
}
