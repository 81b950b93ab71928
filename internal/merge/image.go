package merge

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Placeholder is the stock image URL scrapers emit when a page has no real
// photo; it never survives a merge.
const Placeholder = "https://media.timeout.com/images/placeholder.jpg"

// ImageVerifier reports whether an image URL is reachable. Implementations
// must be safe for concurrent use.
type ImageVerifier interface {
	Verify(ctx context.Context, url string) bool
}

// NoopVerifier verifies nothing, which makes the merger fall back to the
// first non-placeholder URL.
type NoopVerifier struct{}

func (NoopVerifier) Verify(context.Context, string) bool { return false }

// HTTPVerifier checks image reachability with rate-limited HEAD requests.
type HTTPVerifier struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPVerifier creates a verifier limited to rps requests per second.
func NewHTTPVerifier(rps float64, timeout time.Duration) *HTTPVerifier {
	return &HTTPVerifier{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Verify issues a HEAD request and accepts 2xx responses with an image
// content type (or no content type at all; some CDNs omit it on HEAD).
func (v *HTTPVerifier) Verify(ctx context.Context, url string) bool {
	if err := v.limiter.Wait(ctx); err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := v.client.Do(req)
	if err != nil {
		zap.L().Debug("merge: image verify failed", zap.String("url", url), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false
	}
	contentType := resp.Header.Get("Content-Type")
	return contentType == "" || strings.HasPrefix(contentType, "image/")
}
