package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/nodewee/ruling-to-text/pkg/config"
	"github.com/nodewee/ruling-to-text/pkg/constants"
	"github.com/nodewee/ruling-to-text/pkg/interfaces"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

// sniffLen is how far into a body the PDF header may appear
const sniffLen = 1024

// Source streams one kind of location into w
type Source interface {
	// Name identifies the source in logs
	Name() string

	// Download copies location into w and returns the byte count. Errors
	// should be FetchErrors so the caller can decide whether to retry.
	Download(ctx context.Context, location string, w io.Writer) (int64, error)
}

// Fetcher downloads case PDFs into the cache with retry and atomic writes
type Fetcher struct {
	sources map[string]Source
	retry   utils.RetryPolicy
	logger  *logger.Logger
}

// Ensure Fetcher implements SourceFetcher interface
var _ interfaces.SourceFetcher = (*Fetcher)(nil)

// NewFetcher creates a fetcher with the http(s), file, s3 and gs sources
func NewFetcher(cfg *config.Config, log *logger.Logger) *Fetcher {
	f := &Fetcher{
		sources: make(map[string]Source),
		retry:   utils.NewRetryPolicy(cfg.Fetch.MaxAttempts, cfg.Fetch.BackoffInitial, cfg.Fetch.BackoffMax),
		logger:  log,
	}

	httpSource := NewHTTPSource(cfg.Fetch)
	f.Register("http", httpSource)
	f.Register("https", httpSource)
	f.Register("file", NewFileSource())
	f.Register("s3", NewS3Source(cfg.S3, log))
	f.Register("gs", NewGCSSource(cfg.GCS, log))
	return f
}

// NewFetcherWithSources builds a fetcher from explicit sources, used by tests
// and embedders that bring their own transport
func NewFetcherWithSources(retry utils.RetryPolicy, log *logger.Logger, sources map[string]Source) *Fetcher {
	f := &Fetcher{sources: make(map[string]Source), retry: retry, logger: log}
	for scheme, src := range sources {
		f.Register(scheme, src)
	}
	return f
}

// Register binds a URL scheme to a source
func (f *Fetcher) Register(scheme string, src Source) {
	f.sources[strings.ToLower(scheme)] = src
}

// Fetch downloads source to dest. dest is either complete or absent
// afterwards; transient failures are retried with backoff.
func (f *Fetcher) Fetch(ctx context.Context, source, dest string) error {
	src, location, err := f.route(source)
	if err != nil {
		return err
	}

	return f.retry.Do(ctx, func(attempt int) error {
		if attempt > 1 {
			f.logger.Warn("Retrying download of %s (attempt %d/%d)", source, attempt, f.retry.MaxAttempts)
		}
		n, err := f.fetchOnce(ctx, src, location, dest)
		if err != nil {
			return err
		}
		f.logger.Debug("Fetched %s via %s (%d bytes)", source, src.Name(), n)
		return nil
	})
}

func (f *Fetcher) fetchOnce(ctx context.Context, src Source, location, dest string) (int64, error) {
	out, err := utils.CreateAtomic(dest)
	if err != nil {
		return 0, utils.NewFetchError("cannot create cache file", err, false)
	}
	defer out.Abort()

	sniff := &headWriter{limit: sniffLen}
	n, err := src.Download(ctx, location, io.MultiWriter(out, sniff))
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, utils.NewFetchError(fmt.Sprintf("empty response from %s", location), nil, false)
	}
	if !bytes.Contains(sniff.buf, []byte(constants.PDFMagic)) {
		return n, utils.NewFetchError(fmt.Sprintf("response from %s is not a PDF", location), nil, false)
	}
	if err := out.Commit(); err != nil {
		return n, utils.NewFetchError("cannot store downloaded file", err, false)
	}
	return n, nil
}

// route picks the source for a location. Bare paths are local files.
func (f *Fetcher) route(source string) (Source, string, error) {
	scheme := "file"
	location := source

	if u, err := url.Parse(source); err == nil && len(u.Scheme) > 1 {
		scheme = strings.ToLower(u.Scheme)
		if scheme == "file" {
			location = u.Path
		}
	}

	src, ok := f.sources[scheme]
	if !ok {
		return nil, "", utils.NewFetchError(fmt.Sprintf("unsupported source scheme %q", scheme), nil, false)
	}
	return src, location, nil
}

// Close releases clients held by registered sources
func (f *Fetcher) Close() error {
	var firstErr error
	for _, src := range f.sources {
		if c, ok := src.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// headWriter keeps the first limit bytes written to it
type headWriter struct {
	buf   []byte
	limit int
}

func (h *headWriter) Write(p []byte) (int, error) {
	if room := h.limit - len(h.buf); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		h.buf = append(h.buf, p[:room]...)
	}
	return len(p), nil
}
