package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/ppiankov/harvester/internal/cache"
	harvesterrors "github.com/ppiankov/harvester/internal/errors"
	"github.com/ppiankov/harvester/internal/logging"
	"github.com/ppiankov/harvester/internal/model"
)

// SourceFetcher reads the raw text at a location. Every failure is an
// *errors.UnreachableSourceError.
type SourceFetcher interface {
	Fetch(ctx context.Context, location string) (*FetchResult, error)
}

// Pacer delays requests to a location.
type Pacer interface {
	Wait(ctx context.Context, location string) error
}

// FetchResult contains the fetched body and metadata
type FetchResult struct {
	Body      []byte
	Meta      model.FetchMeta
	FromCache bool // body came from the cache after a 304
}

// Fetcher fetches JSON documents over HTTP or from file:// locations
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64

	pacer    Pacer
	cache    cache.Cache
	cacheTTL time.Duration
}

// FetcherOption configures a Fetcher
type FetcherOption func(*Fetcher)

// WithPacer paces requests through p before they are sent.
func WithPacer(p Pacer) FetcherOption {
	return func(f *Fetcher) { f.pacer = p }
}

// WithCache enables conditional requests backed by c.
func WithCache(c cache.Cache, ttl time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.cache = c
		f.cacheTTL = ttl
	}
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(client *http.Client, userAgent string, maxBytes int64, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		httpClient: client,
		userAgent:  userAgent,
		maxBytes:   maxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the document at location
func (f *Fetcher) Fetch(ctx context.Context, location string) (*FetchResult, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, harvesterrors.NewUnreachableSourceError(location, err)
	}

	switch u.Scheme {
	case "file":
		return f.fetchFile(location, u.Path)
	case "http", "https":
		return f.fetchHTTP(ctx, location)
	default:
		return nil, harvesterrors.NewUnreachableSourceError(location, fmt.Errorf("unsupported scheme %q", u.Scheme))
	}
}

func (f *Fetcher) fetchFile(location, path string) (*FetchResult, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, harvesterrors.NewUnreachableSourceError(location, err)
	}
	defer fh.Close()

	body, err := f.readLimited(fh)
	if err != nil {
		return nil, harvesterrors.NewUnreachableSourceError(location, err)
	}
	return &FetchResult{Body: body}, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, location string) (*FetchResult, error) {
	if f.pacer != nil {
		if err := f.pacer.Wait(ctx, location); err != nil {
			return nil, harvesterrors.NewUnreachableSourceError(location, fmt.Errorf("rate limit wait: %w", err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, harvesterrors.NewUnreachableSourceError(location, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	var (
		key    string
		cached cache.Entry
		hit    bool
	)
	if f.cache != nil {
		key = cache.CacheKey(location)
		cached, hit = f.cache.Get(key)
		if hit && cached.Validated() {
			if cached.ETag != "" {
				req.Header.Set("If-None-Match", cached.ETag)
			}
			if cached.LastModified != "" {
				req.Header.Set("If-Modified-Since", cached.LastModified)
			}
		}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, harvesterrors.NewUnreachableSourceError(location, err)
	}
	defer resp.Body.Close()

	meta := model.FetchMeta{
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
	}

	if resp.StatusCode == http.StatusNotModified && hit {
		logging.FromContext(ctx).Debug().Str("source", location).Msg("Not modified, using cached body")
		return &FetchResult{Body: cached.Body, Meta: meta, FromCache: true}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, harvesterrors.NewStatusError(location, resp.StatusCode)
	}

	body, err := f.readLimited(resp.Body)
	if err != nil {
		return nil, harvesterrors.NewUnreachableSourceError(location, err)
	}

	if f.cache != nil && (meta.ETag != "" || meta.LastModified != "") {
		entry := cache.Entry{
			Body:         body,
			ETag:         meta.ETag,
			LastModified: meta.LastModified,
			StoredAt:     time.Now().UTC(),
		}
		if err := f.cache.Set(key, entry, f.cacheTTL); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Str("source", location).Msg("Failed to cache response")
		}
	}

	return &FetchResult{Body: body, Meta: meta}, nil
}

// readLimited reads r fully, failing when it holds more than maxBytes.
func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	if f.maxBytes <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", f.maxBytes)
	}
	return body, nil
}
