// ABOUTME: Fetches title and description metadata for saved URLs.
// ABOUTME: Reads Open Graph tags with <title> and meta description fallbacks.

package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/harper/marknote/internal/models"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 10 * time.Second
	// DefaultMaxBytes bounds how much of a page is parsed.
	DefaultMaxBytes = 50000
	UserAgent       = "Mozilla/5.0 (compatible; MarkNote/1.0)"
	acceptHeader    = "text/html,application/xhtml+xml"
)

var (
	ErrInvalidURL = errors.New("invalid URL: only http and https are supported")
	ErrTimeout    = errors.New("request timeout")
)

// HTTPError reports a non-success response from the target site.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Metadata is what a page says about itself.
type Metadata struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Cache stores fetched metadata between calls.
type Cache interface {
	Get(ctx context.Context, key string, v any) (bool, error)
	Put(ctx context.Context, key string, v any) error
}

// Options configures a Fetcher. Zero values pick the defaults.
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxBytes          int64
	Cache             Cache
	Logger            *zap.Logger
}

// Fetcher retrieves page metadata over HTTP.
type Fetcher struct {
	client   *resty.Client
	limiter  *rate.Limiter
	maxBytes int64
	cache    Cache
	logger   *zap.Logger
}

func NewFetcher(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	limit, burst := rate.Inf, 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		if b := int(opts.RequestsPerSecond); b > burst {
			burst = b
		}
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", UserAgent).
		SetHeader("Accept", acceptHeader).
		SetHeader("Accept-Language", "en-US,en;q=0.9")

	return &Fetcher{
		client:   client,
		limiter:  rate.NewLimiter(limit, burst),
		maxBytes: opts.MaxBytes,
		cache:    opts.Cache,
		logger:   opts.Logger,
	}
}

// ValidateURL parses raw and accepts only absolute http and https URLs.
func ValidateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return nil, ErrInvalidURL
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u, nil
	default:
		return nil, ErrInvalidURL
	}
}

// Fetch downloads the page at rawURL and extracts its metadata.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Metadata, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	target := u.String()

	if f.cache != nil {
		var cached Metadata
		found, err := f.cache.Get(ctx, target, &cached)
		if err != nil {
			f.logger.Warn("metadata cache read failed", zap.String("url", target), zap.Error(err))
		} else if found {
			f.logger.Debug("metadata cache hit", zap.String("url", target))
			return &cached, nil
		}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(target)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, target)
		}
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	body := resp.RawBody()
	defer func() { _ = body.Close() }()

	if !resp.IsSuccess() {
		f.logger.Debug("metadata fetch rejected",
			zap.String("url", target),
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, &HTTPError{StatusCode: resp.StatusCode()}
	}

	meta, err := Parse(io.LimitReader(body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", target, err)
	}
	meta.URL = target
	meta.FetchedAt = time.Now().UTC()

	if f.cache != nil {
		if err := f.cache.Put(ctx, target, meta); err != nil {
			f.logger.Warn("metadata cache write failed", zap.String("url", target), zap.Error(err))
		}
	}

	f.logger.Debug("metadata fetched", zap.String("url", target), zap.String("title", meta.Title))
	return meta, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Parse extracts the title and description from an HTML document. The title
// prefers og:title over <title> and defaults to "Untitled"; the description
// prefers og:description over meta description.
func Parse(r io.Reader) (*Metadata, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var ogTitle, title, ogDesc, desc string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Namespace == "" {
			switch n.Data {
			case "title":
				if title == "" {
					title = strings.TrimSpace(textContent(n))
				}
			case "meta":
				content := strings.TrimSpace(attr(n, "content"))
				if content == "" {
					break
				}
				switch {
				case strings.EqualFold(attr(n, "property"), "og:title") && ogTitle == "":
					ogTitle = content
				case strings.EqualFold(attr(n, "property"), "og:description") && ogDesc == "":
					ogDesc = content
				case strings.EqualFold(attr(n, "name"), "description") && desc == "":
					desc = content
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	meta := &Metadata{Title: firstNonEmpty(ogTitle, title, models.DefaultNoteTitle), Description: firstNonEmpty(ogDesc, desc)}
	return meta, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
