package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"codeberg.org/readeck/go-readability/v2"
	"golang.org/x/net/html"
	"golang.org/x/sync/singleflight"

	"github.com/atlas-intel/dossier/internal/util"
)

// ErrNoEvidence indicates that a URL could not yield readable page content,
// either because the server refused the request or because the response was
// not an HTML document.
var ErrNoEvidence = errors.New("no readable evidence at url")

// Page is the extracted readable content of a fetched web page.
type Page struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Fetcher retrieves web pages and extracts their main readable content.
// Results are cached per URL and concurrent fetches of the same URL are
// collapsed into a single request.
type Fetcher struct {
	client  *http.Client
	retries int

	cache   map[string]*Page
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewFetcherParams contains configuration options for creating a new Fetcher.
type NewFetcherParams struct {
	Timeout time.Duration
	Retries int
}

// NewFetcher creates a new page fetcher with the given request timeout and
// retry count. Zero values fall back to sensible defaults.
func NewFetcher(params NewFetcherParams) *Fetcher {
	timeout := params.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	retries := params.Retries
	if retries == 0 {
		retries = 2
	}

	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		retries: retries,
		cache:   make(map[string]*Page),
	}
}

// Fetch retrieves the page at rawURL and extracts its readable text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	f.cacheMu.RLock()
	if cached, ok := f.cache[rawURL]; ok {
		f.cacheMu.RUnlock()
		return cached, nil
	}
	f.cacheMu.RUnlock()

	result, err, _ := f.group.Do(rawURL, func() (any, error) {
		f.cacheMu.RLock()
		if cached, ok := f.cache[rawURL]; ok {
			f.cacheMu.RUnlock()
			return cached, nil
		}
		f.cacheMu.RUnlock()

		page, err := util.RetryWithContext(ctx, f.retries, func(ctx context.Context) (*Page, error) {
			return f.fetchOnce(ctx, rawURL)
		})
		if err != nil {
			return nil, err
		}

		f.cacheMu.Lock()
		f.cache[rawURL] = page
		f.cacheMu.Unlock()

		return page, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*Page), nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "dossier-research/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrNoEvidence, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") {
		return nil, fmt.Errorf("%w: content type %q", ErrNoEvidence, contentType)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	var builder strings.Builder
	if err := article.RenderText(&builder); err != nil {
		return nil, fmt.Errorf("failed to render article text: %w", err)
	}

	title := article.Title()
	if title == "" {
		title = titleFromHTML(body)
	}

	return &Page{
		URL:       rawURL,
		Title:     title,
		Text:      builder.String(),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// titleFromHTML extracts the document title from raw HTML. It is a fallback
// for pages where readability leaves the title empty.
func titleFromHTML(raw []byte) string {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return title
}
