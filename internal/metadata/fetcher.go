// Package metadata builds a preview for a project's metadata URI. The URI may point at
// a JSON document or an HTML page; ipfs:// URIs go through a gateway.
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/equifund/backend/internal/cache"
	"github.com/equifund/backend/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultGateway = "https://ipfs.io/ipfs/"
	cacheTTL       = 10 * time.Minute
	maxBody        = 1 << 20
)

var ErrUnsupportedURI = errors.New("unsupported metadata uri")

type Fetcher struct {
	httpClient *http.Client
	gateway    string
	maxRetries int
	store      cache.Store
	log        *zap.Logger
}

// NewFetcher builds a fetcher; store may be nil to disable caching.
func NewFetcher(timeoutMS, maxRetries int, gateway string, store cache.Store, log *zap.Logger) *Fetcher {
	if gateway == "" {
		gateway = DefaultGateway
	}
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: time.Duration(timeoutMS) * time.Millisecond},
		gateway:    gateway,
		maxRetries: maxRetries,
		store:      store,
		log:        log,
	}
}

// Resolve maps a metadata URI onto a fetchable URL.
func (f *Fetcher) Resolve(uri string) (string, error) {
	uri = strings.TrimSpace(uri)
	switch {
	case strings.HasPrefix(uri, "ipfs://"):
		path := strings.TrimPrefix(uri, "ipfs://")
		path = strings.TrimPrefix(path, "ipfs/")
		if path == "" {
			return "", fmt.Errorf("%w: %q", ErrUnsupportedURI, uri)
		}
		return f.gateway + path, nil
	case strings.HasPrefix(uri, "https://"), strings.HasPrefix(uri, "http://"):
		return uri, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedURI, uri)
}

func (f *Fetcher) Fetch(ctx context.Context, uri string) (*models.ProjectMetadata, error) {
	key := "metadata:" + uri
	if f.store != nil {
		if raw, err := f.store.Get(ctx, key); err == nil {
			var md models.ProjectMetadata
			if json.Unmarshal(raw, &md) == nil {
				return &md, nil
			}
		}
	}

	url, err := f.Resolve(uri)
	if err != nil {
		return nil, err
	}

	body, contentType, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}

	md := &models.ProjectMetadata{URI: uri, FetchedAt: time.Now().UTC()}
	if isJSON(contentType, body) {
		err = parseJSON(body, md)
	} else {
		err = parseHTML(body, url, md)
	}
	if err != nil {
		return nil, err
	}

	if f.store != nil {
		if raw, err := json.Marshal(md); err == nil {
			if err := f.store.Set(ctx, key, raw, cacheTTL); err != nil {
				f.log.Warn("metadata cache write failed", zap.String("uri", uri), zap.Error(err))
			}
		}
	}
	return md, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, string, error) {
	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, "", err
		}
		req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.5")

		resp, err := f.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
			if resp.StatusCode == http.StatusNotFound {
				break
			}
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return body, resp.Header.Get("Content-Type"), nil
	}

	f.log.Warn("metadata fetch failed", zap.String("url", url), zap.Error(lastErr))
	return nil, "", lastErr
}

func isJSON(contentType string, body []byte) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && strings.HasSuffix(mt, "json") {
		return true
	}
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

type jsonMetadata struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	ExternalURL string `json:"external_url"`
	Website     string `json:"website"`
}

func parseJSON(body []byte, md *models.ProjectMetadata) error {
	var doc jsonMetadata
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("decode metadata json: %w", err)
	}
	md.Title = firstNonEmpty(doc.Name, doc.Title)
	md.Description = doc.Description
	md.Image = doc.Image
	md.Website = firstNonEmpty(doc.ExternalURL, doc.Website)
	return nil
}

func parseHTML(body []byte, pageURL string, md *models.ProjectMetadata) error {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("parse metadata html: %w", err)
	}

	meta := func(attr, name string) string {
		v, _ := doc.Find(fmt.Sprintf(`meta[%s="%s"]`, attr, name)).First().Attr("content")
		return strings.TrimSpace(v)
	}

	md.Title = firstNonEmpty(meta("property", "og:title"), strings.TrimSpace(doc.Find("title").First().Text()))
	md.Description = firstNonEmpty(meta("property", "og:description"), meta("name", "description"))
	md.Image = meta("property", "og:image")
	md.Website = firstNonEmpty(meta("property", "og:url"), pageURL)
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
