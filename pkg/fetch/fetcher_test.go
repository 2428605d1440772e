package fetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF\n")

func noSleep(context.Context, time.Duration) error { return nil }

func newTestFetcher(srv *httptest.Server) *Fetcher {
	retry := utils.NewRetryPolicy(3, time.Millisecond, 10*time.Millisecond).WithSleep(noSleep)
	client := http.DefaultClient
	if srv != nil {
		client = srv.Client()
	}
	httpSource := NewHTTPSourceWithClient(client, "ruling-to-text-test")
	return NewFetcherWithSources(retry, logger.NewNop(), map[string]Source{
		"http":  httpSource,
		"https": httpSource,
		"file":  NewFileSource(),
	})
}

func serve(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFetchSuccess(t *testing.T) {
	srv, hits := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ruling-to-text-test", r.Header.Get("User-Agent"))
		_, _ = w.Write(samplePDF)
	})
	dest := filepath.Join(t.TempDir(), "source.pdf")

	require.NoError(t, newTestFetcher(srv).Fetch(context.Background(), srv.URL+"/a.pdf", dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, samplePDF, got)
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
}

func TestFetchNotFoundIsPermanent(t *testing.T) {
	srv, hits := serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	dest := filepath.Join(t.TempDir(), "source.pdf")

	err := newTestFetcher(srv).Fetch(context.Background(), srv.URL+"/missing.pdf", dest)
	require.Error(t, err)
	assert.False(t, utils.IsRecoverable(err))
	assert.Equal(t, utils.ErrorTypeNetwork, utils.GetErrorType(err))
	assert.Contains(t, err.Error(), "404")
	assert.EqualValues(t, 1, atomic.LoadInt32(hits), "4xx must not be retried")
	assert.NoFileExists(t, dest)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	srv, hits := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	dest := filepath.Join(t.TempDir(), "source.pdf")

	err := newTestFetcher(srv).Fetch(context.Background(), srv.URL, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gave up after 3 attempts")
	assert.EqualValues(t, 3, atomic.LoadInt32(hits))
	assert.NoFileExists(t, dest)
}

func TestFetchRecoversAfterTransientFailure(t *testing.T) {
	var calls int32
	srv, _ := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write(samplePDF)
	})
	dest := filepath.Join(t.TempDir(), "source.pdf")

	require.NoError(t, newTestFetcher(srv).Fetch(context.Background(), srv.URL, dest))
	assert.FileExists(t, dest)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestFetchRejectsNonPDF(t *testing.T) {
	srv, hits := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>maintenance</body></html>"))
	})
	dest := filepath.Join(t.TempDir(), "source.pdf")

	err := newTestFetcher(srv).Fetch(context.Background(), srv.URL, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a PDF")
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
	assert.NoFileExists(t, dest)
}

func TestFetchAcceptsPreambleBeforeHeader(t *testing.T) {
	body := append(bytes.Repeat([]byte{' '}, 100), samplePDF...)
	srv, _ := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	})
	dest := filepath.Join(t.TempDir(), "source.pdf")

	require.NoError(t, newTestFetcher(srv).Fetch(context.Background(), srv.URL, dest))
}

func TestFetchRejectsEmptyBody(t *testing.T) {
	srv, _ := serve(t, func(w http.ResponseWriter, r *http.Request) {})
	dest := filepath.Join(t.TempDir(), "source.pdf")

	err := newTestFetcher(srv).Fetch(context.Background(), srv.URL, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
	assert.NoFileExists(t, dest)
}

func TestFetchLocalFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.pdf")
	require.NoError(t, os.WriteFile(src, samplePDF, 0o644))
	f := newTestFetcher(nil)

	dest := filepath.Join(dir, "bare.pdf")
	require.NoError(t, f.Fetch(context.Background(), src, dest))
	assert.FileExists(t, dest)

	dest = filepath.Join(dir, "url.pdf")
	require.NoError(t, f.Fetch(context.Background(), "file://"+src, dest))
	assert.FileExists(t, dest)
}

func TestFetchMissingLocalFileIsPermanent(t *testing.T) {
	dir := t.TempDir()
	f := newTestFetcher(nil)

	err := f.Fetch(context.Background(), filepath.Join(dir, "nope.pdf"), filepath.Join(dir, "out.pdf"))
	require.Error(t, err)
	assert.False(t, utils.IsRecoverable(err))
}

func TestFetchUnknownScheme(t *testing.T) {
	f := newTestFetcher(nil)

	err := f.Fetch(context.Background(), "ftp://example.com/a.pdf", filepath.Join(t.TempDir(), "a.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported source scheme "ftp"`)
}

func TestFetchCancelled(t *testing.T) {
	srv, hits := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(samplePDF)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestFetcher(srv).Fetch(ctx, srv.URL, filepath.Join(t.TempDir(), "a.pdf"))
	require.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 0, atomic.LoadInt32(hits))
}

func TestParseBucketURL(t *testing.T) {
	bucket, key, err := ParseBucketURL("s3://rulings/2021/04/a.pdf", "s3")
	require.NoError(t, err)
	assert.Equal(t, "rulings", bucket)
	assert.Equal(t, "2021/04/a.pdf", key)

	for _, bad := range []string{"s3://", "s3://bucket", "s3://bucket/", "gs://bucket/key", "s3:///key"} {
		_, _, err := ParseBucketURL(bad, "s3")
		assert.Error(t, err, bad)
	}
}
