package fetch

import (
	"net/http"
	"time"
)

// newHTTPClient builds the transport used for vetted https:// downloads.
// Trimmed down from pkg/api/http_client.go's NewHTTPClient: the registry
// client needs JSON headers, zstd decompression, and bearer auth; a
// installer-binary fetcher needs none of that, only sane connection reuse.
// The client sets no request timeout; a deadline comes only from the
// request's context.
func newHTTPClient(userAgent string) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &http.Client{
		Transport: &userAgentRoundTripper{ua: userAgent, rt: transport},
	}
}

type userAgentRoundTripper struct {
	ua string
	rt http.RoundTripper
}

func (u *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", u.ua)
	}
	return u.rt.RoundTrip(req)
}
