package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nodewee/ruling-to-text/pkg/config"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

// HTTPSource downloads http and https URLs
type HTTPSource struct {
	client    *http.Client
	userAgent string
}

// NewHTTPSource creates an HTTP source with the configured timeout
func NewHTTPSource(cfg config.FetchConfig) *HTTPSource {
	return &HTTPSource{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
	}
}

// NewHTTPSourceWithClient wraps an existing client
func NewHTTPSourceWithClient(client *http.Client, userAgent string) *HTTPSource {
	return &HTTPSource{client: client, userAgent: userAgent}
}

// Name returns the name of the source
func (s *HTTPSource) Name() string {
	return "http"
}

// Download performs a GET and streams the body into w
func (s *HTTPSource) Download(ctx context.Context, location string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return 0, utils.NewFetchError(fmt.Sprintf("invalid url %s", location), err, false)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, utils.NewFetchError(fmt.Sprintf("request to %s failed", location), err, isTransientNetErr(ctx, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case isTransientStatus(resp.StatusCode):
		return 0, utils.NewFetchError(fmt.Sprintf("server returned %s for %s", resp.Status, location), nil, true)
	default:
		return 0, utils.NewFetchError(fmt.Sprintf("server returned %s for %s", resp.Status, location), nil, false)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, utils.NewFetchError(fmt.Sprintf("reading body of %s failed", location), err, isTransientNetErr(ctx, err))
	}
	return n, nil
}

func isTransientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return code >= 500
}

// isTransientNetErr treats transport failures as retryable unless the run
// itself was cancelled or the server's certificate was rejected
func isTransientNetErr(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var certErr *tls.CertificateVerificationError
	return !errors.As(err, &certErr)
}
